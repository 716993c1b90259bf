package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/brojonat/clawsignal/service/config"
	"github.com/brojonat/clawsignal/service/scan"
	"github.com/brojonat/clawsignal/service/solana"
)

// WalletScanner produces the report for one wallet.
type WalletScanner interface {
	Scan(ctx context.Context, wallet string, premium bool) (*scan.Report, error)
}

// handleScan returns a handler that scans a wallet.
// GET /scan?wallet={address}&premium={0|1}
func handleScan(scanner WalletScanner, cfg *config.Config, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		wallet := strings.TrimSpace(query.Get("wallet"))
		premium := query.Get("premium") == "1"

		if wallet == "" {
			writeError(w, "Missing wallet parameter", http.StatusBadRequest)
			return
		}

		if err := solana.ValidateAddress(wallet); err != nil {
			logger.DebugContext(r.Context(), "invalid wallet", "wallet", wallet, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := cfg.APIKeyError(); err != nil {
			logger.ErrorContext(r.Context(), "scan rejected", "error", err)
			writeError(w, err.Error(), http.StatusInternalServerError)
			return
		}

		report, err := scanner.Scan(r.Context(), wallet, premium)
		if err != nil {
			status, message := statusForError(err)
			logger.ErrorContext(r.Context(), "scan failed",
				"wallet", wallet,
				"status", status,
				"error", err,
			)
			writeError(w, message, status)
			return
		}

		writeJSON(w, report, http.StatusOK)
	})
}

// statusForError maps a scan failure to the response status and message.
func statusForError(err error) (int, string) {
	var upErr *solana.UpstreamError
	if errors.As(err, &upErr) {
		if upErr.StatusCode >= 400 && upErr.StatusCode <= 599 {
			return upErr.StatusCode, upErr.Message
		}
		return http.StatusBadGateway, upErr.Message
	}

	if errors.Is(err, config.ErrMissingAPIKey) {
		return http.StatusInternalServerError, err.Error()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, err.Error()
	}

	var transportErr *solana.TransportError
	if errors.As(err, &transportErr) {
		return http.StatusBadGateway, err.Error()
	}

	return http.StatusInternalServerError, err.Error()
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, map[string]string{"error": message}, statusCode)
}
