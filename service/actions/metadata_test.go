package actions

import (
	"crypto/tls"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brojonat/blinks/service/apperr"
	"github.com/brojonat/blinks/service/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ownerKey = "6Xy1dL2WkjgaCbxRsUMaE1kmRheuB8jUDDopJCBCHYPm"

func testBlink(custom bool, values ...string) *db.Blink {
	b := &db.Blink{
		ID:            "01HZX3M4Q3D6R3A2F4Y5Z6B7C8",
		Title:         "Shelter",
		Description:   "Food for cats",
		Label:         "Donate",
		ImageURL:      "/images/cat.png",
		IsCustomInput: custom,
		User:          &db.User{PublicKey: ownerKey},
	}
	for _, v := range values {
		b.Amounts = append(b.Amounts, db.Amount{Value: decimal.RequireFromString(v)})
	}
	return b
}

func TestBuildMetadata_PresetsAndCustom(t *testing.T) {
	origin := "https://blinks.example.com"
	meta, err := BuildMetadata(testBlink(true, "0.1", "0.5", "1"), origin)
	require.NoError(t, err)

	assert.Equal(t, "action", meta.Type)
	assert.Equal(t, "https://blinks.example.com/images/cat.png", meta.Icon)
	assert.Equal(t, "Shelter", meta.Title)

	actions := meta.Links.Actions
	require.Len(t, actions, 4)

	base := "https://blinks.example.com/api/actions/transfer-sol/01HZX3M4Q3D6R3A2F4Y5Z6B7C8?to=" + ownerKey
	for i, v := range []string{"0.1", "0.5", "1"} {
		assert.Equal(t, "Send "+v, actions[i].Label)
		assert.Equal(t, base+"&amount="+v, actions[i].Href)
		assert.Equal(t, "transaction", actions[i].Type)
		assert.Empty(t, actions[i].Parameters)
	}

	custom := actions[3]
	assert.Equal(t, "Send Custom Amount", custom.Label)
	assert.Equal(t, base+"&amount={amount}", custom.Href)
	require.Len(t, custom.Parameters, 1)
	assert.Equal(t, ActionParameter{Name: "amount", Label: "Enter the amount of SOL to send", Required: true}, custom.Parameters[0])
}

func TestBuildMetadata_NoCustomInput(t *testing.T) {
	meta, err := BuildMetadata(testBlink(false, "2"), "http://localhost:8080")
	require.NoError(t, err)
	require.Len(t, meta.Links.Actions, 1)
	assert.Equal(t, "Send 2", meta.Links.Actions[0].Label)
}

func TestBuildMetadata_AbsoluteIcon(t *testing.T) {
	b := testBlink(false, "1")
	b.ImageURL = "https://cdn.example.com/cat.png"

	meta, err := BuildMetadata(b, "http://localhost:8080")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/cat.png", meta.Icon)
}

func TestBuildMetadata_JSONShape(t *testing.T) {
	meta, err := BuildMetadata(testBlink(false, "1"), "http://localhost")
	require.NoError(t, err)

	data, err := json.Marshal(meta)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "links")
	assert.NotContains(t, raw, "error")
	assert.NotContains(t, raw, "disabled")
}

func TestBuildMetadata_NoOwner(t *testing.T) {
	b := testBlink(false, "1")
	b.User = nil
	_, err := BuildMetadata(b, "http://localhost")
	assert.Error(t, err)
}

func TestRequestOrigin(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://api.local:8080/x", nil)
	assert.Equal(t, "http://api.local:8080", RequestOrigin(r, ""))

	r.TLS = &tls.ConnectionState{}
	assert.Equal(t, "https://api.local:8080", RequestOrigin(r, ""))

	r = httptest.NewRequest(http.MethodGet, "http://internal/x", nil)
	r.Header.Set("X-Forwarded-Proto", "https, http")
	r.Header.Set("X-Forwarded-Host", "blinks.example.com")
	assert.Equal(t, "https://blinks.example.com", RequestOrigin(r, ""))

	assert.Equal(t, "https://public.example.com", RequestOrigin(r, "https://public.example.com/"))
}

func TestParseAmount(t *testing.T) {
	for _, raw := range []string{"1", "1.0", "0.001", " 2.5 ", "18446744073.709551615"} {
		_, err := ParseAmount(raw)
		assert.NoError(t, err, raw)
	}

	for _, raw := range []string{"", "0", "-1", "abc", "NaN", "{amount}", "18446744074", "1e20"} {
		_, err := ParseAmount(raw)
		require.Error(t, err, raw)
		assert.Equal(t, apperr.CodeInvalidAmount, apperr.CodeOf(err))
	}
}

func TestTransferMessage(t *testing.T) {
	assert.Equal(t, "Send 1 to R", TransferMessage(decimal.RequireFromString("1.0"), "R"))
	assert.Equal(t, "Send 0.25 to R", TransferMessage(decimal.RequireFromString("0.250"), "R"))
}

func TestHeaders(t *testing.T) {
	h := Headers(BlockchainIDDevnet)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/actions/transfer-sol/x", nil))

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET,POST,PUT,OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-Blockchain-Ids")
	assert.Equal(t, "X-Action-Version, X-Blockchain-Ids", rec.Header().Get("Access-Control-Expose-Headers"))
	assert.Equal(t, Version, rec.Header().Get("X-Action-Version"))
	assert.Equal(t, BlockchainIDDevnet, rec.Header().Get("X-Blockchain-Ids"))
}

func TestBlockchainID(t *testing.T) {
	id, err := BlockchainID("mainnet")
	require.NoError(t, err)
	assert.Equal(t, BlockchainIDMainnet, id)

	_, err = BlockchainID("localnet")
	assert.Error(t, err)
}

func TestRules(t *testing.T) {
	rules := Rules()
	require.NotEmpty(t, rules.Rules)
	assert.Equal(t, "/api/actions/transfer-sol/**", rules.Rules[0].PathPattern)
}
