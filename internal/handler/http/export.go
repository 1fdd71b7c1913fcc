package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/findologic/plugin-shopware-5-sub000/internal/export"
	"github.com/findologic/plugin-shopware-5-sub000/pkg/httputil"
	"github.com/findologic/plugin-shopware-5-sub000/pkg/validator"
)

// FeedRenderer renders export pages.
type FeedRenderer interface {
	Render(ctx context.Context, req export.Request) ([]byte, error)
}

// ExportHandler serves the catalog feed the search service imports.
type ExportHandler struct {
	exporter FeedRenderer
	logger   *slog.Logger
}

// NewExportHandler creates a new export HTTP handler.
func NewExportHandler(exporter FeedRenderer, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{exporter: exporter, logger: logger}
}

// Export handles GET /export?shopkey=&start=&count=&productId=
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := export.Request{Shopkey: q.Get("shopkey")}

	for _, p := range []struct {
		name   string
		target *int
	}{
		{"start", &req.Start},
		{"count", &req.Count},
		{"productId", &req.ProductID},
	} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			httputil.WriteBadParameter(w, p.name+" must be an integer")
			return
		}
		*p.target = n
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	page, err := h.exporter.Render(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := httputil.WriteXML(w, http.StatusOK, func(out io.Writer) error {
		_, err := out.Write(page)
		return err
	}); err != nil {
		h.logger.WarnContext(r.Context(), "write export page", slog.String("error", err.Error()))
	}
}
