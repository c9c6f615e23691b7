package actions

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/brojonat/blinks/service/apperr"
	"github.com/brojonat/blinks/service/db"
	"github.com/brojonat/blinks/service/solana"
	"github.com/shopspring/decimal"
)

// TransferPath is the route prefix of the donation action.
const TransferPath = "/api/actions/transfer-sol/"

const (
	customAmountLabel      = "Send Custom Amount"
	customAmountParamLabel = "Enter the amount of SOL to send"
	amountParam            = "amount"
)

// RequestOrigin returns scheme://host for r, honoring X-Forwarded-Proto.
// A non-empty override wins.
func RequestOrigin(r *http.Request, override string) string {
	if override != "" {
		return strings.TrimRight(override, "/")
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}

	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return scheme + "://" + host
}

// ActionURL is the absolute action URL of a blink.
func ActionURL(origin, blinkID string) string {
	return origin + TransferPath + url.PathEscape(blinkID)
}

// BaseHref is the action URL with the recipient query parameter.
func BaseHref(origin string, b *db.Blink) string {
	return ActionURL(origin, b.ID) + "?to=" + url.QueryEscape(b.User.PublicKey)
}

// ResolveIcon resolves an image reference against origin.
func ResolveIcon(origin, image string) (string, error) {
	base, err := url.Parse(origin + "/")
	if err != nil {
		return "", fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	ref, err := url.Parse(image)
	if err != nil {
		return "", fmt.Errorf("invalid image url %q: %w", image, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// BuildMetadata projects a stored blink into its action metadata document.
// One action is listed per preset amount in stored order, followed by the
// parameterized custom amount action when the blink allows it.
func BuildMetadata(b *db.Blink, origin string) (*ActionGetResponse, error) {
	if b.User == nil {
		return nil, errors.New("blink has no owner")
	}

	icon, err := ResolveIcon(origin, b.ImageURL)
	if err != nil {
		return nil, err
	}

	base := BaseHref(origin, b)
	links := make([]LinkedAction, 0, len(b.Amounts)+1)
	for _, a := range b.Amounts {
		value := a.Value.String()
		links = append(links, LinkedAction{
			Type:  TypeTransaction,
			Label: "Send " + value,
			Href:  base + "&" + amountParam + "=" + value,
		})
	}

	if b.IsCustomInput {
		links = append(links, LinkedAction{
			Type:  TypeTransaction,
			Label: customAmountLabel,
			Href:  base + "&" + amountParam + "={" + amountParam + "}",
			Parameters: []ActionParameter{
				{Name: amountParam, Label: customAmountParamLabel, Required: true},
			},
		})
	}

	return &ActionGetResponse{
		Type:        TypeAction,
		Icon:        icon,
		Title:       b.Title,
		Description: b.Description,
		Label:       b.Label,
		Links:       &ActionLinks{Actions: links},
	}, nil
}

// ParseAmount parses a SOL amount from a query parameter.
// Missing, unparseable and non-positive values are rejected, as are values
// whose lamport count does not fit in a transfer instruction.
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, apperr.InvalidAmount(raw)
	}
	if _, err := solana.ToLamports(amount); err != nil {
		return decimal.Zero, apperr.InvalidAmount(raw)
	}
	return amount, nil
}

// TransferMessage is the human-readable message of a transaction response.
func TransferMessage(amount decimal.Decimal, recipient string) string {
	return "Send " + amount.String() + " to " + recipient
}

// Rules returns the actions.json rules for this service.
func Rules() ActionsJSON {
	return ActionsJSON{
		Rules: []ActionRule{
			{PathPattern: TransferPath + "**", APIPath: TransferPath + "**"},
			{PathPattern: "/api/actions/**", APIPath: "/api/actions/**"},
		},
	}
}
