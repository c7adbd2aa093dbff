package handlers

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"photostamp-api/internal/models"
	"photostamp-api/internal/utils"
)

// StampResult is the per-task outcome in a batch response. Image data is
// inline base64 JPEG; nothing is stored server-side.
type StampResult struct {
	FileName          string `json:"fileName"`
	Status            string `json:"status"`
	Location          string `json:"location,omitempty"`
	SuggestedFilename string `json:"suggestedFilename,omitempty"`
	Image             []byte `json:"image,omitempty"`
	Error             string `json:"error,omitempty"`
}

// HandlePhotos accepts a multipart batch of photos ("files" parts), runs
// each through an independent stamping pipeline and answers with one result
// per unique filename. A failed photo reports its own error and never
// blocks its siblings.
func (h *Handler) HandlePhotos(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "no files provided")
		return
	}

	var tasks []*models.PhotoTask
	for _, header := range files {
		data, err := readPart(header)
		if err != nil {
			// One unreadable part must not sink its siblings; it enters
			// the batch as an already-failed task.
			tasks = append(tasks, &models.PhotoTask{
				FileName:     header.Filename,
				Status:       models.StatusError,
				ErrorMessage: err.Error(),
			})
			continue
		}

		// HEIC input is converted at the boundary; the pipeline itself
		// only sees JPEG/PNG bytes.
		name, mime, data := utils.ConvertIfHeic(header.Filename, header.Header.Get("Content-Type"), data)

		tasks = append(tasks, &models.PhotoTask{
			FileName:    name,
			ContentType: mime,
			Data:        data,
			Status:      models.StatusIdle,
		})
	}

	tasks = h.pipeline.ProcessBatch(r.Context(), tasks)

	results := make([]StampResult, 0, len(tasks))
	for _, task := range tasks {
		result := StampResult{
			FileName: task.FileName,
			Status:   string(task.Status),
			Error:    task.ErrorMessage,
		}
		if task.Result != nil {
			result.Location = task.Location
			result.SuggestedFilename = task.SuggestedFilename
			result.Image = task.Result.Data
		}
		results = append(results, result)
	}

	log.Printf("[Photos] Processed %d files in %v", len(tasks), time.Since(start))
	respondJSON(w, http.StatusOK, results)
}

// Reads one multipart file into memory.
func readPart(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	return data, nil
}
