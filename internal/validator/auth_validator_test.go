package validator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRegister(t *testing.T) {
	v := NewAuthValidator()
	ctx := context.Background()

	//正常系
	assert.NoError(t, v.ValidateRegister(ctx, "user@example.com", "strong-password-1"))

	//必須
	assert.Error(t, v.ValidateRegister(ctx, "", "strong-password-1"))
	assert.Error(t, v.ValidateRegister(ctx, "user@example.com", ""))

	//email形式
	assert.Error(t, v.ValidateRegister(ctx, "not-an-email", "strong-password-1"))
	assert.Error(t, v.ValidateRegister(ctx, "user@nodomain", "strong-password-1"))

	//8文字未満
	assert.Error(t, v.ValidateRegister(ctx, "user@example.com", "short"))

	//弱いパスワード
	assert.Error(t, v.ValidateRegister(ctx, "user@example.com", "password123"))
	assert.Error(t, v.ValidateRegister(ctx, "user@example.com", "12345678"))
}

func TestValidateLogin(t *testing.T) {
	v := NewAuthValidator()
	ctx := context.Background()

	assert.NoError(t, v.ValidateLogin(ctx, "user@example.com", "whatever"))

	assert.Error(t, v.ValidateLogin(ctx, "", "whatever"))
	assert.Error(t, v.ValidateLogin(ctx, "user@example.com", ""))
	assert.Error(t, v.ValidateLogin(ctx, "not-an-email", "whatever"))
}
