package main

import (
	"testing"

	"github.com/use-agent/streamgrab/candidate"
	"github.com/use-agent/streamgrab/config"
)

func TestWeightsFrom(t *testing.T) {
	s := config.ScoringConfig{
		SegmentPlaylist: 1,
		Chunklist:       2,
		IndexPlaylist:   3,
		MasterPlaylist:  4,
		BareManifest:    5,
		SignedAuth:      6,
		SessionParam:    7,
		SecureScheme:    8,
		PerParam:        9,
		AdPenalty:       10,
	}
	w := weightsFrom(s)
	def := candidate.DefaultWeights()

	if w.SegmentPlaylist != 1 || w.SignedAuth != 6 || w.AdPenalty != 10 {
		t.Errorf("configured weights not applied: %+v", w)
	}
	if w.LengthStep != def.LengthStep || w.LengthCap != def.LengthCap {
		t.Errorf("length terms changed: %+v", w)
	}
}
