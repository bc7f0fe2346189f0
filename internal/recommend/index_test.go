package recommend

import (
	"math"
	"reflect"
	"testing"
)

func TestBuildIndexDocFreq(t *testing.T) {
	ix := BuildIndex([][]string{
		{"auth", "token", "auth"},
		{"auth", "session"},
		{"database"},
	}, 1, 1.0)

	if ix.DocCount() != 3 {
		t.Errorf("DocCount = %d, want 3", ix.DocCount())
	}
	if got := ix.DocFreq("auth"); got != 2 {
		t.Errorf("DocFreq(auth) = %d, want 2 (set per document)", got)
	}
	if got := ix.DocFreq("token"); got != 1 {
		t.Errorf("DocFreq(token) = %d, want 1", got)
	}
	want := []string{"auth", "database", "session", "token"}
	if got := ix.Terms(); !reflect.DeepEqual(got, want) {
		t.Errorf("Terms = %v, want %v", got, want)
	}
}

func TestIndexIDF(t *testing.T) {
	ix := BuildIndex([][]string{{"auth", "token"}, {"auth", "session"}, {"database"}}, 1, 1.0)

	if got, want := ix.IDF("token"), math.Log(3.0/2.0); math.Abs(got-want) > 1e-12 {
		t.Errorf("IDF(token) = %f, want %f", got, want)
	}
	// N / (1+df) = 3/3
	if got := ix.IDF("auth"); math.Abs(got) > 1e-12 {
		t.Errorf("IDF(auth) = %f, want 0", got)
	}

	every := BuildIndex([][]string{{"printer"}, {"printer"}}, 1, 1.0)
	if got := every.IDF("printer"); got >= 0 {
		t.Errorf("IDF of a term in every document = %f, want negative", got)
	}
}

func TestBuildIndexFilters(t *testing.T) {
	docs := [][]string{{"auth", "token"}, {"auth", "session"}, {"database"}}

	minDF := BuildIndex(docs, 2, 1.0)
	if minDF.Size() != 1 || !minDF.Contains("auth") {
		t.Errorf("minDF=2 vocabulary = %v, want [auth]", minDF.Terms())
	}

	maxDF := BuildIndex(docs, 1, 0.5)
	if maxDF.Contains("auth") {
		t.Error("maxDFRatio=0.5 should drop a term present in 2 of 3 documents")
	}
	if !maxDF.Contains("token") {
		t.Error("maxDFRatio=0.5 should keep a term present in 1 of 3 documents")
	}
	if maxDF.DocCount() != 3 {
		t.Errorf("DocCount = %d, want 3 regardless of filtering", maxDF.DocCount())
	}
}

func TestBuildIndexEmpty(t *testing.T) {
	ix := BuildIndex(nil, 1, 1.0)
	if ix.Size() != 0 || ix.DocCount() != 0 {
		t.Errorf("empty corpus: size=%d docs=%d", ix.Size(), ix.DocCount())
	}
	if got := ix.IDF("anything"); got != 0 {
		t.Errorf("IDF on empty corpus = %f, want 0", got)
	}
}
