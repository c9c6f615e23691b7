package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/brojonat/blinks/service/actions"
	"github.com/skip2/go-qrcode"
)

const (
	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

// ActionLink is the solana-action URI wallets resolve from a QR code.
func ActionLink(origin, blinkID string) string {
	return "solana-action:" + actions.ActionURL(origin, blinkID)
}

// generateQRCode renders data as a PNG QR code of size x size pixels.
func generateQRCode(data string, size int) ([]byte, error) {
	qr, err := qrcode.New(data, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	png, err := qr.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code as PNG: %w", err)
	}
	return png, nil
}

// handleBlinkQR returns a handler that renders the action link of a blink as a QR code.
// GET /api/blinks/{blinkId}/qr?size={pixels}
func handleBlinkQR(store BlinkStore, baseURL string, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := lookupBlink(r, store)
		if err != nil {
			writeAppError(w, logger, err)
			return
		}

		size := defaultQRSize
		if raw := r.URL.Query().Get("size"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < minQRSize || n > maxQRSize {
				writeError(w, fmt.Sprintf("size must be between %d and %d", minQRSize, maxQRSize), http.StatusBadRequest)
				return
			}
			size = n
		}

		png, err := generateQRCode(ActionLink(actions.RequestOrigin(r, baseURL), b.ID), size)
		if err != nil {
			logger.Error("failed to render QR code", "blink_id", b.ID, "error", err)
			writeError(w, "failed to render QR code", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.WriteHeader(http.StatusOK)
		w.Write(png)
	})
}
