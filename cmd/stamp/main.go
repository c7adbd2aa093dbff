package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"photostamp-api/internal/config"
	"photostamp-api/internal/models"
	"photostamp-api/internal/server"
	"photostamp-api/internal/utils"
)

// Offline batch stamper: runs the same pipeline as the HTTP service over a
// local directory and writes the stamped copies next to it.
func main() {
	logger := log.New(os.Stdout, "[Stamp] ", log.LstdFlags)

	dir := flag.String("dir", "", "Directory containing photos to stamp")
	out := flag.String("out", "", "Output directory (default: <dir>/stamped)")
	workers := flag.Int("workers", 0, "Concurrent pipeline runs (default: WORKER_COUNT)")
	dryRun := flag.Bool("dry-run", false, "Resolve locations but write nothing")
	flag.Parse()

	if *dir == "" {
		logger.Fatal("Please provide a photo directory using the -dir flag")
	}
	if *out == "" {
		*out = filepath.Join(*dir, "stamped")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if *workers > 0 {
		cfg.WorkerCount = *workers
	}

	svcs, err := server.InitServices(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize services: %v", err)
	}

	tasks, err := collectTasks(logger, *dir)
	if err != nil {
		logger.Fatalf("Failed to read directory: %v", err)
	}
	if len(tasks) == 0 {
		logger.Println("No photos found")
		return
	}

	logger.Printf("Processing %d photos from %s", len(tasks), *dir)
	tasks = svcs.Pipeline.ProcessBatch(context.Background(), tasks)

	var stats struct {
		stamped, errors int
	}
	used := make(map[string]bool)

	for _, task := range tasks {
		if task.Status != models.StatusReady {
			logger.Printf("❌ %s: %s", task.FileName, task.ErrorMessage)
			stats.errors++
			continue
		}

		name := uniqueTarget(used, task.SuggestedFilename)

		if *dryRun {
			logger.Printf("🔍 [DRY] Would write %s -> %s (%q)", task.FileName, name, task.Result.Text)
			stats.stamped++
			continue
		}

		if err := os.MkdirAll(*out, 0o755); err != nil {
			logger.Fatalf("Failed to create output directory: %v", err)
		}
		target := filepath.Join(*out, name)
		if err := os.WriteFile(target, task.Result.Data, 0o644); err != nil {
			logger.Printf("❌ Failed to write %s: %v", target, err)
			stats.errors++
			continue
		}

		logger.Printf("✅ %s -> %s (%q)", task.FileName, target, task.Result.Text)
		stats.stamped++
	}

	logger.Printf("Done: %d stamped, %d errors", stats.stamped, stats.errors)
	if stats.errors > 0 {
		os.Exit(1)
	}
}

// Disambiguates output names. Photos from the same place on the same day
// share a suggested filename, so later ones get a numeric suffix instead of
// overwriting earlier writes.
func uniqueTarget(used map[string]bool, name string) string {
	if !used[name] {
		used[name] = true
		return name
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, i, ext)
		if !used[candidate] {
			used[candidate] = true
			return candidate
		}
	}
}

// Reads every supported photo in dir into a PhotoTask, converting HEIC at
// the boundary the same way the HTTP upload path does.
func collectTasks(logger *log.Logger, dir string) ([]*models.PhotoTask, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var tasks []*models.PhotoTask
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		mimeType := mime.TypeByExtension(ext)
		switch ext {
		case ".jpg", ".jpeg", ".png":
		case ".heic", ".heif":
			mimeType = "image/heic"
		default:
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			logger.Printf("⏭️  Skipping unreadable file %s: %v", entry.Name(), err)
			continue
		}

		name, mimeType, data := utils.ConvertIfHeic(entry.Name(), mimeType, data)
		tasks = append(tasks, &models.PhotoTask{
			FileName:    name,
			ContentType: mimeType,
			Data:        data,
			Status:      models.StatusIdle,
		})
	}

	return tasks, nil
}
