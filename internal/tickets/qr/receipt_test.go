package qr

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventpass/internal/models"
)

func TestReceiptEncryptionRoundTrip(t *testing.T) {
	g := NewReceiptGenerator("test-secret")

	item := models.PurchaseItem{
		ID:         "i1",
		PurchaseID: "p1",
		TicketID:   "t1",
		UserID:     "u1",
		Quantity:   3,
		UnitPrice:  50.0,
		TotalPrice: 150.0,
	}

	data, err := encryptAES([]byte(`{"id":"probe"}`), g.secret)
	require.NoError(t, err)
	assert.NotContains(t, data, "probe", "payload must not appear in the clear")

	encrypted, err := encryptAES(mustJSON(t, item), g.secret)
	require.NoError(t, err)

	decrypted, err := g.DecryptReceiptData(encrypted)
	require.NoError(t, err)
	assert.Equal(t, item.ID, decrypted.ID)
	assert.Equal(t, item.Quantity, decrypted.Quantity)
	assert.Equal(t, item.TotalPrice, decrypted.TotalPrice)
}

func TestDecryptReceiptData_WrongSecret(t *testing.T) {
	g := NewReceiptGenerator("right-secret")
	other := NewReceiptGenerator("wrong-secret")

	encrypted, err := encryptAES(mustJSON(t, models.PurchaseItem{ID: "i1"}), g.secret)
	require.NoError(t, err)

	// The wrong key produces garbage that fails to unmarshal.
	_, err = other.DecryptReceiptData(encrypted)
	assert.Error(t, err)
}

func TestGenerateReceipt_ProducesPNG(t *testing.T) {
	g := NewReceiptGenerator("test-secret")

	png, err := g.GenerateReceipt(models.PurchaseItem{ID: "i1", TicketID: "t1", UserID: "u1", Quantity: 1})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")), "receipt should be a PNG image")
}

func mustJSON(t *testing.T, item models.PurchaseItem) []byte {
	t.Helper()
	data, err := json.Marshal(item)
	require.NoError(t, err)
	return data
}
