package jwt_test

import (
	"context"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/common/sig/sigtest"
	"github.com/axent-pl/drmkit/jwt"
	"github.com/axent-pl/drmkit/policy"
)

func randomKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 64)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("rand.Read() failed: %v", err)
	}
	return key
}

func TestContentKeyTokenVerifier_Verify(t *testing.T) {
	cert := sigtest.NewCertificate(t)
	symmetric := randomKey(t)

	builder := &policy.Builder{Issuer: "iss", Audience: "aud", Certificate: cert, SymmetricKey: symmetric}
	restriction, err := builder.Restriction()
	if err != nil {
		t.Fatalf("Restriction() failed: %v", err)
	}
	otherRestriction, err := (&policy.Builder{Issuer: "iss", Audience: "aud", Certificate: sigtest.NewCertificate(t), SymmetricKey: randomKey(t)}).Restriction()
	if err != nil {
		t.Fatalf("Restriction() failed: %v", err)
	}

	minter, err := jwt.NewMinter("iss", "aud", cert, symmetric)
	if err != nil {
		t.Fatalf("NewMinter() failed: %v", err)
	}
	ctx := context.Background()
	primary, err := minter.PrimaryToken(ctx, testKeyID)
	if err != nil {
		t.Fatalf("PrimaryToken() failed: %v", err)
	}
	secondary, err := minter.SecondaryToken(ctx)
	if err != nil {
		t.Fatalf("SecondaryToken() failed: %v", err)
	}
	wrongAudience, err := jwt.NewMinter("iss", "someone-else", cert, symmetric)
	if err != nil {
		t.Fatalf("NewMinter() failed: %v", err)
	}
	wrongAudienceToken, err := wrongAudience.PrimaryToken(ctx, testKeyID)
	if err != nil {
		t.Fatalf("PrimaryToken() failed: %v", err)
	}

	tests := []struct {
		name         string
		token        string
		restriction  *policy.TokenRestriction
		wantKeyID    string
		wantKeyIndex int
		wantErr      error
	}{
		{
			name:         "primary token under certificate key",
			token:        primary,
			restriction:  restriction,
			wantKeyID:    testKeyID,
			wantKeyIndex: -1,
		},
		{
			name:         "secondary token under symmetric key",
			token:        secondary,
			restriction:  restriction,
			wantKeyIndex: 0,
		},
		{
			name:        "primary token under other keys",
			token:       primary,
			restriction: otherRestriction,
			wantErr:     common.ErrInvalidCredentials,
		},
		{
			name:        "secondary token under other keys",
			token:       secondary,
			restriction: otherRestriction,
			wantErr:     common.ErrInvalidCredentials,
		},
		{
			name:        "wrong audience",
			token:       wrongAudienceToken,
			restriction: restriction,
			wantErr:     common.ErrInvalidCredentials,
		},
		{
			name:        "empty token",
			token:       "",
			restriction: restriction,
			wantErr:     common.ErrInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &jwt.ContentKeyTokenVerifier{}
			got, err := v.Verify(ctx, jwt.JWTCredentials{Token: tt.token}, tt.restriction)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Verify() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify() failed: %v", err)
			}
			if got.KeyIdentifier != tt.wantKeyID {
				t.Errorf("KeyIdentifier = %q, want %q", got.KeyIdentifier, tt.wantKeyID)
			}
			if got.KeyIndex != tt.wantKeyIndex {
				t.Errorf("KeyIndex = %d, want %d", got.KeyIndex, tt.wantKeyIndex)
			}
			if span := got.ExpiresAt.Sub(got.NotBefore); span != jwt.DefaultWindow.Span() {
				t.Errorf("exp - nbf = %v, want %v", span, jwt.DefaultWindow.Span())
			}
		})
	}
}

func TestMinter_PrimaryWindow(t *testing.T) {
	cert := sigtest.NewCertificate(t)
	minter, err := jwt.NewMinter("iss", "aud", cert, randomKey(t))
	if err != nil {
		t.Fatalf("NewMinter() failed: %v", err)
	}
	minter.PrimaryWindow = jwt.HoursWindow(2)

	token, err := minter.PrimaryToken(context.Background(), testKeyID)
	if err != nil {
		t.Fatalf("PrimaryToken() failed: %v", err)
	}
	restriction, err := (&policy.Builder{Issuer: "iss", Audience: "aud", Certificate: cert}).Restriction()
	if err != nil {
		t.Fatalf("Restriction() failed: %v", err)
	}
	got, err := (&jwt.ContentKeyTokenVerifier{}).Verify(context.Background(), jwt.JWTCredentials{Token: token}, restriction)
	if err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}
	if span := got.ExpiresAt.Sub(got.NotBefore); span != 2*time.Hour+5*time.Minute {
		t.Errorf("exp - nbf = %v, want 2h5m", span)
	}
}
