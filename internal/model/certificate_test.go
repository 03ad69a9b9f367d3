package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCertificateStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to CertificateStatus
		want     bool
	}{
		{StatusDraft, StatusGenerated, true},
		{StatusDraft, StatusIssued, true},
		{StatusGenerated, StatusGenerated, true},
		{StatusIssued, StatusGenerated, false},
		{StatusIssued, StatusDraft, false},
		{StatusIssued, StatusRevoked, true},
		{StatusRevoked, StatusIssued, false},
		{StatusRevoked, StatusRevoked, false},
		{StatusDraft, "archived", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestTransitionSources(t *testing.T) {
	assert.Equal(t, []CertificateStatus{StatusDraft, StatusGenerated}, TransitionSources(StatusGenerated))
	assert.Equal(t, []CertificateStatus{StatusDraft, StatusGenerated, StatusIssued}, TransitionSources(StatusRevoked))
	assert.Empty(t, TransitionSources("archived"))
}
