package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/brojonat/blinks/service/actions"
	"github.com/brojonat/blinks/service/apperr"
	"github.com/brojonat/blinks/service/metrics"
	"github.com/brojonat/blinks/service/solana"
	solanago "github.com/gagliardetto/solana-go"
)

// handleActionOptions answers CORS preflight on action URLs.
func handleActionOptions() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, nil, http.StatusOK)
	})
}

// handleActionsJSON serves the actions.json rules file.
// GET /actions.json
func handleActionsJSON() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, actions.Rules(), http.StatusOK)
	})
}

// handleActionMetadata returns a handler that serves the action metadata of a blink.
// GET /api/actions/transfer-sol/{blinkId}
func handleActionMetadata(store BlinkStore, baseURL string, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := lookupBlink(r, store)
		if err != nil {
			writeActionError(w, logger, m, "metadata", err)
			return
		}

		meta, err := actions.BuildMetadata(b, actions.RequestOrigin(r, baseURL))
		if err != nil {
			writeActionError(w, logger, m, "metadata", apperr.Unknown(err))
			return
		}

		if m != nil {
			m.RecordActionRequest("metadata", "success")
		}
		writeJSON(w, meta, http.StatusOK)
	})
}

// handleActionTransaction returns a handler that assembles an unsigned
// donation transaction for the payer in the request body.
// POST /api/actions/transfer-sol/{blinkId}?amount={amount}
func handleActionTransaction(store BlinkStore, donations DonationAssembler, feeAccount solanago.PublicKey, feeLamports uint64, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := lookupBlink(r, store)
		if err != nil {
			writeActionError(w, logger, m, "transaction", err)
			return
		}

		amount, err := actions.ParseAmount(r.URL.Query().Get("amount"))
		if err != nil {
			writeActionError(w, logger, m, "transaction", err)
			return
		}

		var req actions.ActionPostRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&req); err != nil {
			writeActionError(w, logger, m, "transaction", apperr.InvalidAccount(err))
			return
		}
		payer, err := solanago.PublicKeyFromBase58(req.Account)
		if err != nil {
			writeActionError(w, logger, m, "transaction", apperr.InvalidAccount(err))
			return
		}

		recipient, err := solanago.PublicKeyFromBase58(b.User.PublicKey)
		if err != nil {
			writeActionError(w, logger, m, "transaction", apperr.Unknown(fmt.Errorf("blink %s has an invalid owner key: %w", b.ID, err)))
			return
		}

		donation, err := donations.AssembleDonation(r.Context(), solana.DonationParams{
			Payer:       payer,
			Recipient:   recipient,
			FeeAccount:  feeAccount,
			Amount:      amount,
			FeeLamports: feeLamports,
		})
		if err != nil {
			writeActionError(w, logger, m, "transaction", err)
			return
		}

		if m != nil {
			m.RecordActionRequest("transaction", "success")
			m.RecordDonation(donation.Lamports)
		}
		logger.Info("donation transaction assembled",
			"request_id", requestIDFrom(r.Context()),
			"blink_id", b.ID,
			"payer", payer.String(),
			"lamports", donation.Lamports,
		)

		writeJSON(w, actions.ActionPostResponse{
			Type:        actions.TypeTransaction,
			Transaction: donation.Encoded,
			Message:     actions.TransferMessage(amount, recipient.String()),
		}, http.StatusOK)
	})
}

// writeActionError writes the Action error body. Every failure on an action
// endpoint is a 400, including lookups that miss.
func writeActionError(w http.ResponseWriter, logger *slog.Logger, m *metrics.Metrics, kind string, err error) {
	if m != nil {
		m.RecordActionRequest(kind, apperr.CodeOf(err))
	}
	if k := apperr.KindOf(err); k == apperr.KindStorage || k == apperr.KindUnknown {
		logger.Error("action request failed", "kind", kind, "error", err)
	} else {
		logger.Debug("action request rejected", "kind", kind, "error", err)
	}
	writeJSON(w, actions.ActionError{Message: apperr.MessageOf(err)}, http.StatusBadRequest)
}
