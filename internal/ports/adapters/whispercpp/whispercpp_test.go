package whispercpp

import "testing"

func TestParseWordLevel(t *testing.T) {
	t.Parallel()
	jb := []byte(`{"segments":[
		{"start":0,"end":1.2,"text":" the quick fox","words":[
			{"start":0,"end":0.3,"word":" the"},
			{"start":0.3,"end":0.7,"word":" quick"},
			{"start":0.7,"end":1.2,"word":" fox"}
		]}
	]}`)
	words, err := parse(jb)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(words) != 3 {
		t.Fatalf("len = %d, want 3", len(words))
	}
	if words[1].Text != "quick" || words[1].Start != 0.3 || words[1].End != 0.7 {
		t.Errorf("words[1] = %+v", words[1])
	}
}

func TestParseSegmentFallback(t *testing.T) {
	t.Parallel()
	jb := []byte(`{"segments":[{"start":2.0,"end":4.0,"text":"hello there"}]}`)
	words, err := parse(jb)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(words) != 1 {
		t.Fatalf("len = %d, want 1", len(words))
	}
	if words[0].Text != "hello there" || words[0].Start != 2.0 || words[0].End != 4.0 {
		t.Errorf("words[0] = %+v", words[0])
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	t.Parallel()
	if _, err := parse([]byte("not json")); err == nil {
		t.Error("expected error")
	}
}
