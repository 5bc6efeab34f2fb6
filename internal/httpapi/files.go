package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cli2468/Vision-sub000/internal/ocr"
	"github.com/cli2468/Vision-sub000/internal/sheet"
)

const maxWorkbookBytes = 8 << 20

// readUpload returns the bytes and declared type of the multipart file
// field, reading at most limit bytes.
func readUpload(w http.ResponseWriter, r *http.Request, field string, limit int64) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))
	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, "", fmt.Errorf("invalid upload: %w", err)
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("missing %q file field", field)
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, "", errors.New("upload is too large")
	}
	return data, header.Header.Get("Content-Type"), nil
}

// handleOCR always answers 200: an image the extractor cannot read comes
// back as an empty form for manual entry.
func (a *API) handleOCR(w http.ResponseWriter, r *http.Request) {
	image, mimeType, err := readUpload(w, r, "image", ocr.MaxImageBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	data, ok := a.service.ExtractOrder(r.Context(), image, mimeType, nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"order":     data,
		"extracted": ok,
	})
}

func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", sheet.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="resell-ledger.xlsx"`)
	if err := a.service.ExportWorkbook(w); err != nil {
		a.logger.Error().Err(err).Msg("workbook export failed")
	}
}

func (a *API) handleImport(w http.ResponseWriter, r *http.Request) {
	data, _, err := readUpload(w, r, "file", maxWorkbookBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	saved, err := a.service.ImportWorkbook(bytes.NewReader(data))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"imported": len(saved), "lots": saved})
}
