package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"

	"github.com/skip2/go-qrcode"

	"eventpass/internal/models"
)

// ReceiptGenerator renders purchase line items as encrypted QR receipts.
type ReceiptGenerator struct {
	secret []byte
}

func NewReceiptGenerator(secret string) *ReceiptGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &ReceiptGenerator{secret: hashed[:]}
}

// GenerateReceipt encodes the line item as an AES-encrypted QR PNG.
func (g *ReceiptGenerator) GenerateReceipt(item models.PurchaseItem) ([]byte, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}

	encrypted, err := encryptAES(data, g.secret)
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(encrypted, qrcode.Medium, 256)
}

// DecryptReceiptData recovers the line item from a scanned receipt payload.
func (g *ReceiptGenerator) DecryptReceiptData(encrypted string) (*models.PurchaseItem, error) {
	data, err := decryptAES(encrypted, g.secret)
	if err != nil {
		return nil, err
	}

	var item models.PurchaseItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

func decryptAES(encoded string, key []byte) ([]byte, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aes.BlockSize {
		return nil, errors.New("ciphertext too short")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	iv := ciphertext[:aes.BlockSize]
	data := make([]byte, len(ciphertext)-aes.BlockSize)

	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(data, ciphertext[aes.BlockSize:])

	return data, nil
}
