package handlers

import "photostamp-api/internal/services"

type Handler struct {
	pipeline      *services.PipelineService
	geocoder      *services.GeocodingService
	maxUploadSize int64
}

func New(pipeline *services.PipelineService, geocoder *services.GeocodingService, maxUploadSize int64) *Handler {
	return &Handler{
		pipeline:      pipeline,
		geocoder:      geocoder,
		maxUploadSize: maxUploadSize,
	}
}
