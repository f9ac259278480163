package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
)

// aesEncrypt encrypts text with the given key using AES-CFB, prefixing the
// ciphertext with a random IV.
func aesEncrypt(key, text []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	b := base64.StdEncoding.EncodeToString(text)
	ciphertext := make([]byte, aes.BlockSize+len(b))
	iv := ciphertext[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, err
	}
	cfb := cipher.NewCFBEncrypter(block, iv)
	cfb.XORKeyStream(ciphertext[aes.BlockSize:], []byte(b))
	return ciphertext, nil
}

// aesDecrypt reverses aesEncrypt.
func aesDecrypt(key, text []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(text) < aes.BlockSize {
		return nil, errors.New("ciphertext too short")
	}
	iv := text[:aes.BlockSize]
	text = text[aes.BlockSize:]
	cfb := cipher.NewCFBDecrypter(block, iv)
	cfb.XORKeyStream(text, text)
	data, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		return nil, err
	}
	return data, nil
}

// encryptSecret encrypts a string into a hex ciphertext.
func encryptSecret(key []byte, str string) (string, error) {
	ciphertext, err := aesEncrypt(key, []byte(str))
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(ciphertext), nil
}

// decryptSecret decrypts a previously encrypted hex ciphertext.
func decryptSecret(key []byte, cipherhex string) (string, error) {
	ciphertext, err := hex.DecodeString(cipherhex)
	if err != nil {
		return "", err
	}
	plaintext, err := aesDecrypt(key, ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
