package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"helpdesk-go/internal/recommend"
	"helpdesk-go/internal/repository"
)

var vpnQuery = recommend.Query{Description: "vpn connection drops", Category: "Network", TopK: 3}

func TestRecommendationServiceBuildsAndSavesSnapshot(t *testing.T) {
	source := &fakeSource{records: vpnHistory()}
	snaps := &memSnapshots{}
	svc, err := NewRecommendationService(context.Background(), RecommendationConfig{
		Source: source, Snapshots: snaps, Options: recommend.DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("NewRecommendationService: %v", err)
	}
	if snaps.saves != 1 {
		t.Errorf("snapshot saves = %d, want 1", snaps.saves)
	}
	if st := svc.Stats(); st.Records != 5 || st.VocabularySize == 0 || st.SnapshotVersion != recommend.SnapshotVersion {
		t.Errorf("stats = %+v", st)
	}

	// 第二个实例应直接使用快照
	again, err := NewRecommendationService(context.Background(), RecommendationConfig{
		Source: source, Snapshots: snaps, Options: recommend.DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("second NewRecommendationService: %v", err)
	}
	if snaps.saves != 1 {
		t.Errorf("snapshot rebuilt on unchanged corpus, saves = %d", snaps.saves)
	}
	if len(again.Recommend(vpnQuery)) == 0 {
		t.Error("snapshot-restored engine returned nothing")
	}
}

func TestRecommendationServiceRebuildsStaleSnapshot(t *testing.T) {
	snaps := &repository.FileSnapshotStore{Path: filepath.Join(t.TempDir(), "snapshot.json")}
	source := &fakeSource{}
	first, err := NewRecommendationService(context.Background(), RecommendationConfig{
		Source: source, Snapshots: snaps, Options: recommend.DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("NewRecommendationService: %v", err)
	}
	if first.Stats().Records != 0 {
		t.Fatalf("initial records = %d, want 0", first.Stats().Records)
	}

	// 导入历史记录后重启
	source.records = vpnHistory()
	restarted, err := NewRecommendationService(context.Background(), RecommendationConfig{
		Source: source, Snapshots: snaps, Options: recommend.DefaultOptions(),
	})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if st := restarted.Stats(); st.Records != 5 {
		t.Errorf("records after restart = %d, want 5", st.Records)
	}
	if len(restarted.Recommend(vpnQuery)) == 0 {
		t.Error("restarted service served the stale empty snapshot")
	}

	saved, err := snaps.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(saved.Records) != 5 {
		t.Errorf("saved snapshot records = %d, want 5", len(saved.Records))
	}
}

func TestRecommendationServiceSourceError(t *testing.T) {
	_, err := NewRecommendationService(context.Background(), RecommendationConfig{
		Source: &fakeSource{err: errSourceDown}, Options: recommend.DefaultOptions(),
	})
	if !errors.Is(err, errSourceDown) {
		t.Fatalf("err = %v, want source error", err)
	}
	if _, err := NewRecommendationService(context.Background(), RecommendationConfig{}); err == nil {
		t.Error("nil source accepted")
	}
}

func TestEnhanceNotConfigured(t *testing.T) {
	svc := newRecommendationService(t, &fakeSource{records: vpnHistory()}, nil)
	res := svc.Enhance(context.Background(), vpnQuery)
	if res.Status != EnhanceStatusNotConfigured {
		t.Errorf("status = %q", res.Status)
	}
	if len(res.BaseRecommendations) == 0 || res.EnhancedResolution == "" {
		t.Errorf("degraded result missing base recommendations or note: %+v", res)
	}
}

func TestEnhanceSuccessAndFailure(t *testing.T) {
	synth := &fakeSynth{text: "1. Reinstall the VPN client (0.81)"}
	svc := newRecommendationService(t, &fakeSource{records: vpnHistory()}, synth)

	res := svc.Enhance(context.Background(), vpnQuery)
	if res.Status != EnhanceStatusOK || res.EnhancedResolution != synth.text {
		t.Fatalf("ok result = %+v", res)
	}
	prompt := synth.prompts[0]
	for _, want := range []string{"vpn connection drops", "reinstall vpn client", "Similarity Score"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}

	synth.err = errors.New("rate limited")
	res = svc.Enhance(context.Background(), vpnQuery)
	if res.Status != EnhanceStatusUnavailable || len(res.BaseRecommendations) == 0 {
		t.Errorf("failure result = %+v", res)
	}
}

func TestEnhanceNoMatchesSkipsSynthesis(t *testing.T) {
	synth := &fakeSynth{text: "unused"}
	svc := newRecommendationService(t, &fakeSource{records: vpnHistory()}, synth)
	res := svc.Enhance(context.Background(), recommend.Query{Description: "quantum entanglement", Category: "Physics"})
	if res.Status != EnhanceStatusNoMatches || res.EnhancedResolution != recommend.NoSuggestionsText {
		t.Errorf("result = %+v", res)
	}
	if synth.calls != 0 {
		t.Errorf("synthesizer called %d times", synth.calls)
	}
}

func TestStreamEnhance(t *testing.T) {
	synth := &fakeSynth{chunks: []string{"1. Reinstall ", "the client"}}
	svc := newRecommendationService(t, &fakeSource{records: vpnHistory()}, synth)

	w := &captureWriter{}
	res := svc.StreamEnhance(context.Background(), vpnQuery, ChunkWriter{Conn: w})
	if res.Status != EnhanceStatusOK || res.EnhancedResolution != "1. Reinstall the client" {
		t.Fatalf("result = %+v", res)
	}
	if len(w.messages) != 2 || w.messages[0] != `{"chunk":"1. Reinstall "}` {
		t.Errorf("messages = %q", w.messages)
	}

	synth.err = errors.New("stream broke")
	res = svc.StreamEnhance(context.Background(), vpnQuery, &captureWriter{})
	if res.Status != EnhanceStatusUnavailable {
		t.Errorf("failure status = %q", res.Status)
	}
}

func TestRebuildSwapsAndKeepsOldOnFailure(t *testing.T) {
	source := &fakeSource{records: vpnHistory()[:3]}
	svc := newRecommendationService(t, source, nil)
	if svc.Stats().Records != 3 {
		t.Fatalf("initial records = %d", svc.Stats().Records)
	}

	source.records = vpnHistory()
	st, err := svc.Rebuild(context.Background())
	if err != nil || st.Records != 5 {
		t.Fatalf("Rebuild = %+v, %v", st, err)
	}

	source.err = errSourceDown
	st, err = svc.Rebuild(context.Background())
	if !errors.Is(err, errSourceDown) {
		t.Errorf("err = %v", err)
	}
	if st.Records != 5 || len(svc.Recommend(vpnQuery)) == 0 {
		t.Errorf("old engine not kept: %+v", st)
	}
}
