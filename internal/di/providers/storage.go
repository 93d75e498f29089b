package providers

import (
	"github.com/samber/do/v2"

	"github.com/aresapp/ares-server/internal/config"
	"github.com/aresapp/ares-server/internal/logger"
	"github.com/aresapp/ares-server/internal/media/images"
	"github.com/aresapp/ares-server/internal/wizard"
)

// ImageStorageHandle wraps the badger image cache with shutdown capability.
type ImageStorageHandle struct {
	*images.Storage
}

// Shutdown implements do.Shutdownable.
func (h *ImageStorageHandle) Shutdown() error {
	return h.Close()
}

// ProvideImageStorage provides the on-disk image cache.
func ProvideImageStorage(i do.Injector) (*ImageStorageHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	storage, err := images.OpenStorage(cfg.ImagesDir(), 0, log.Logger)
	if err != nil {
		return nil, err
	}
	return &ImageStorageHandle{Storage: storage}, nil
}

// ProvideImageCache provides the IGDB image cache.
func ProvideImageCache(i do.Injector) (*images.Cache, error) {
	storage := do.MustInvoke[*ImageStorageHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return images.New(images.Config{}, storage.Storage, log.Logger), nil
}

// ProvideReports provides the wizard report store.
func ProvideReports(i do.Injector) (*wizard.Reports, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return wizard.NewReports(cfg.ReportsDir())
}
