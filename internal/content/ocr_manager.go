package content

import (
	"fmt"
	"sync"

	"github.com/filedispatch/agent/internal/domain"
)

// ModelFetcher downloads or otherwise provisions OCR model files for a
// custom model source. Not implemented by this repository — model
// downloading is explicitly out of scope — but the manager shape still
// needs an injection point for a deployment that wants one.
type ModelFetcher interface {
	Fetch(source domain.OCRModelSource, detPath, recPath, dictPath string) error
}

// modelConfig is the resolved set of model file paths an OCR engine was
// last built from; OCRManager rebuilds only when this changes.
type modelConfig struct {
	source                     domain.OCRModelSource
	detPath, recPath, dictPath string
}

// OCRManager lazily validates and (re)builds a Recognizer as settings
// change, grounded on the original's core/ocr.rs OcrManager:
// ensure_engine/resolve_model_paths with rebuild-only-on-config-change.
// It does not itself implement OCR — Builder constructs the concrete
// Recognizer once the model paths are resolved.
type OCRManager struct {
	mu      sync.Mutex
	current *modelConfig
	engine  Recognizer
	builder func(detPath, recPath, dictPath string) (Recognizer, error)
	fetcher ModelFetcher
}

// NewOCRManager builds a manager. builder constructs a concrete
// Recognizer from resolved model file paths; it is the deployment's
// responsibility (e.g. a tesseract or ONNX-backed implementation), not
// this package's.
func NewOCRManager(builder func(detPath, recPath, dictPath string) (Recognizer, error), fetcher ModelFetcher) *OCRManager {
	return &OCRManager{builder: builder, fetcher: fetcher}
}

// Ensure returns a ready Recognizer for the given settings, rebuilding
// only if the resolved model configuration differs from the last build.
func (m *OCRManager) Ensure(settings domain.Settings) (Recognizer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !settings.OCREnabled {
		return nil, fmt.Errorf("OCR is disabled in settings")
	}

	cfg, err := resolveModelPaths(settings, m.fetcher)
	if err != nil {
		return nil, err
	}

	if m.current != nil && *m.current == *cfg {
		return m.engine, nil
	}

	engine, err := m.builder(cfg.detPath, cfg.recPath, cfg.dictPath)
	if err != nil {
		return nil, fmt.Errorf("building OCR engine: %w", err)
	}
	m.engine = engine
	m.current = cfg
	return engine, nil
}

// resolveModelPaths mirrors the original's Bundled/Custom branch: bundled
// paths are a deployment concern (wherever the binary ships its model
// files) so the caller is expected to have already populated
// OCRModelDetPath/RecPath/DictPath for both sources. When any of the
// three path settings is empty, Custom invokes the ModelFetcher if one is
// configured; otherwise (no fetcher, or the Bundled source) an empty path
// is a hard error rather than a silent no-op. Whether the model files
// exist on disk is not checked here.
func resolveModelPaths(settings domain.Settings, fetcher ModelFetcher) (*modelConfig, error) {
	if settings.OCRModelDetPath == "" || settings.OCRModelRecPath == "" || settings.OCRModelDictPath == "" {
		if settings.OCRModelSource == domain.OCRModelCustom && fetcher != nil {
			if err := fetcher.Fetch(settings.OCRModelSource, settings.OCRModelDetPath, settings.OCRModelRecPath, settings.OCRModelDictPath); err != nil {
				return nil, fmt.Errorf("fetching OCR models: %w", err)
			}
		} else {
			return nil, fmt.Errorf("OCR model paths are not configured")
		}
	}
	return &modelConfig{
		source:   settings.OCRModelSource,
		detPath:  settings.OCRModelDetPath,
		recPath:  settings.OCRModelRecPath,
		dictPath: settings.OCRModelDictPath,
	}, nil
}
