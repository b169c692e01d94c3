package service

import "testing"

func TestSessionTokenRoundTrip(t *testing.T) {
	authSvc := NewAuthService()

	token, err := authSvc.GenerateSessionToken("g1", "alice")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	claims, err := authSvc.ValidateSessionToken(token)
	if err != nil {
		t.Fatalf("ValidateSessionToken: %v", err)
	}
	if claims.GameID != "g1" || claims.PlayerID != "alice" {
		t.Errorf("unexpected claims: %s/%s", claims.GameID, claims.PlayerID)
	}
}

func TestValidateSessionTokenRejectsGarbage(t *testing.T) {
	authSvc := NewAuthService()

	if _, err := authSvc.ValidateSessionToken("not-a-token"); err == nil {
		t.Error("expected an error for a malformed token")
	}

	token, err := authSvc.GenerateSessionToken("g1", "alice")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	tampered := token + "x"
	if _, err := authSvc.ValidateSessionToken(tampered); err == nil {
		t.Error("expected an error for a tampered signature")
	}
}
