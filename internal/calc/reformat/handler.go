package reformat

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const MaxUploadSize = 20 << 20

type Handler struct {
	Log *zap.Logger
}

// Upload ranks the drift table of an uploaded workbook and answers the
// workbook with the ranking sheet appended.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "File required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	f, err := excelize.OpenReader(file)
	if err != nil {
		http.Error(w, "Invalid file", http.StatusBadRequest)
		return
	}
	defer f.Close()

	sheet, err := Reformat(f)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrNoHeader) || errors.Is(err, ErrMissingColumn) || errors.Is(err, ErrBadValue) {
			status = http.StatusUnprocessableEntity
		}
		h.logger().Warn("reformat failed", zap.String("file", header.Filename), zap.Error(err))
		http.Error(w, err.Error(), status)
		return
	}
	h.logger().Info("drift table reformatted", zap.String("file", header.Filename), zap.String("sheet", sheet))

	name := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".xlsx") {
		name = "drift_sorted.xlsx"
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("X-Sheet", sheet)
	if _, err := f.WriteTo(w); err != nil {
		h.logger().Error("write workbook", zap.Error(err))
	}
}

func (h *Handler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}
