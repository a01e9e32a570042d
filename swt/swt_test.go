package swt_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/policy"
	"github.com/axent-pl/drmkit/swt"
)

const testKeyID = "3f6b3a2e-1d4c-4b8e-9c55-0a7f3e2d1b90"

func issue(t *testing.T, now time.Time, params swt.IssueParams) string {
	t.Helper()
	iss := &swt.Issuer{Now: func() time.Time { return now }}
	artifacts, err := iss.Issue(context.Background(), params)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	token, err := common.ArtifactWithKind(artifacts, common.ArtifactPrimaryToken)
	if err != nil {
		t.Fatalf("ArtifactWithKind() failed: %v", err)
	}
	return token.String()
}

func TestVerify(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	key := []byte("0123456789abcdef0123456789abcdef")

	restriction, err := (&policy.Builder{Issuer: "iss", Audience: "aud", SymmetricKey: key, TokenType: policy.TokenTypeSWT}).Restriction()
	if err != nil {
		t.Fatalf("Restriction() failed: %v", err)
	}
	otherKey, err := (&policy.Builder{Issuer: "iss", Audience: "aud", SymmetricKey: []byte("another-key"), TokenType: policy.TokenTypeSWT}).Restriction()
	if err != nil {
		t.Fatalf("Restriction() failed: %v", err)
	}

	valid := issue(t, now, swt.IssueParams{Issuer: "iss", Audience: "aud", Key: key, Lifetime: time.Hour, KeyIdentifier: testKeyID})
	noKeyID := issue(t, now, swt.IssueParams{Issuer: "iss", Audience: "aud", Key: key, Lifetime: time.Hour})

	tests := []struct {
		name        string
		token       string
		restriction *policy.TokenRestriction
		now         time.Time
		wantErr     error
	}{
		{name: "round trip", token: valid, restriction: restriction, now: now},
		{name: "other key", token: valid, restriction: otherKey, now: now, wantErr: common.ErrInvalidCredentials},
		{name: "expired", token: valid, restriction: restriction, now: now.Add(2 * time.Hour), wantErr: common.ErrInvalidCredentials},
		{name: "missing key identifier", token: noKeyID, restriction: restriction, now: now, wantErr: common.ErrInvalidCredentials},
		{name: "tampered", token: strings.Replace(valid, "Audience=aud", "Audience=xyz", 1), restriction: restriction, now: now, wantErr: common.ErrInvalidCredentials},
		{name: "no signature", token: "Issuer=iss", restriction: restriction, now: now, wantErr: common.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := swt.Verify(context.Background(), tt.token, tt.restriction, tt.now)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Verify() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify() failed: %v", err)
			}
			if got.KeyIdentifier != testKeyID {
				t.Errorf("KeyIdentifier = %q, want %q", got.KeyIdentifier, testKeyID)
			}
			if !got.ExpiresOn.Equal(now.Add(time.Hour)) {
				t.Errorf("ExpiresOn = %v, want %v", got.ExpiresOn, now.Add(time.Hour))
			}
		})
	}
}

func TestIssuer_IssueInvalid(t *testing.T) {
	tests := []struct {
		name   string
		params swt.IssueParams
	}{
		{name: "no key", params: swt.IssueParams{Issuer: "iss", Audience: "aud", Lifetime: time.Hour}},
		{name: "no lifetime", params: swt.IssueParams{Issuer: "iss", Audience: "aud", Key: []byte("k")}},
		{name: "bad key identifier", params: swt.IssueParams{Issuer: "iss", Audience: "aud", Key: []byte("k"), Lifetime: time.Hour, KeyIdentifier: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&swt.Issuer{}).Issue(context.Background(), tt.params)
			if !errors.Is(err, common.ErrInvalidInput) {
				t.Fatalf("Issue() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}
