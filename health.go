package lectern

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/poiesic/lectern/ingest/ocr"
)

// Check is one component's health outcome.
type Check struct {
	Component string `json:"component"`
	OK        bool   `json:"ok"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HealthReport aggregates the component checks. OK is true only when every
// check passed.
type HealthReport struct {
	OK     bool    `json:"ok"`
	Checks []Check `json:"checks"`
}

// Health probes every dependency the library needs: the catalog, the vector
// index, the data directory, the OCR engine and the configured models.
// Problems are collected in the report, never returned as errors.
func (l *Library) Health(ctx context.Context) *HealthReport {
	report := &HealthReport{OK: true}
	add := func(c Check) {
		if !c.OK {
			report.OK = false
		}
		report.Checks = append(report.Checks, c)
	}

	add(l.checkCatalog(ctx))
	add(l.checkVectorIndex(ctx))
	add(l.checkDataDir())
	add(l.checkOCR())
	add(l.checkModels())
	return report
}

func (l *Library) checkCatalog(ctx context.Context) Check {
	if err := l.backend.Ping(ctx); err != nil {
		return Check{Component: "catalog", Error: err.Error()}
	}
	return Check{Component: "catalog", OK: true, Detail: l.config.CatalogPath()}
}

func (l *Library) checkVectorIndex(ctx context.Context) Check {
	if err := l.index.Ready(ctx); err != nil {
		return Check{Component: "vector_index", Error: err.Error()}
	}
	detail := fmt.Sprintf("collection %s, dim %d", l.index.Collection(), l.config.AI.VectorSize)
	return Check{Component: "vector_index", OK: true, Detail: detail}
}

// checkDataDir verifies the data directory accepts writes, not just that it
// exists: a read-only mount would fail every stage later.
func (l *Library) checkDataDir() Check {
	probe := filepath.Join(l.config.DataDir, ".health")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return Check{Component: "data_dir", Error: err.Error()}
	}
	_ = os.Remove(probe)
	return Check{Component: "data_dir", OK: true, Detail: l.config.DataDir}
}

func (l *Library) checkOCR() Check {
	cfg := l.config.OCR
	_, warning, err := ocr.New(ocr.Config{
		Engine:          cfg.Engine,
		Lang:            cfg.Languages,
		CaptionMinChars: cfg.CaptionMinChars,
		FullPageBBox:    cfg.FullPageBBox,
	})
	if err != nil {
		return Check{Component: "ocr", Error: err.Error()}
	}
	if warning != "" {
		return Check{Component: "ocr", OK: true, Detail: warning}
	}
	engine := cfg.Engine
	if engine == "" {
		engine = "auto"
	}
	return Check{Component: "ocr", OK: true, Detail: "engine " + engine}
}

func (l *Library) checkModels() Check {
	cfg := l.config.AI
	detail := fmt.Sprintf("%s: chat %s, embedding %s (dim %d)",
		cfg.Provider, cfg.ChatModel, cfg.EmbeddingModel, cfg.VectorSize)
	return Check{Component: "models", OK: true, Detail: detail}
}
