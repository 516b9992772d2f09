package sse

import (
	"reflect"
	"testing"
)

func TestFramer_BasicPayloads(t *testing.T) {
	f := New()
	payloads := f.Feed([]byte("data: {\"a\":1}\n\ndata: {\"b\":2}\n\n"))
	want := []string{`{"a":1}`, `{"b":2}`}
	if !reflect.DeepEqual(payloads, want) {
		t.Fatalf("got %v want %v", payloads, want)
	}
}

func TestFramer_IgnoresEmptyAndDone(t *testing.T) {
	f := New()
	payloads := f.Feed([]byte("data: \n\ndata: [DONE]\n\ndata: {\"x\":1}\n\n"))
	want := []string{`{"x":1}`}
	if !reflect.DeepEqual(payloads, want) {
		t.Fatalf("got %v want %v", payloads, want)
	}
}

func TestFramer_ByteWiseSplitIsEquivalent(t *testing.T) {
	whole := []byte("data: {\"a\":1}\n\ndata: {\"b\":2}\n\ndata: {\"c\":3}\n\n")

	oneShot := New().Feed(whole)

	var split []string
	f := New()
	for i := range whole {
		split = append(split, f.Feed(whole[i:i+1])...)
	}

	if !reflect.DeepEqual(oneShot, split) {
		t.Fatalf("byte-wise split mismatch: %v vs %v", oneShot, split)
	}
}

func TestFramer_PartialLineAcrossChunks(t *testing.T) {
	f := New()
	if got := f.Feed([]byte("data: {\"a\"")); got != nil {
		t.Fatalf("expected no payloads for a partial line, got %v", got)
	}
	got := f.Feed([]byte(":1}\n\n"))
	want := []string{`{"a":1}`}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestSawDone(t *testing.T) {
	if !SawDone([]byte("data: [DONE]\n\n")) {
		t.Fatalf("expected SawDone to detect sentinel")
	}
	if SawDone([]byte("data: {}\n\n")) {
		t.Fatalf("expected SawDone false for non-sentinel chunk")
	}
}

func TestFramer_Reset(t *testing.T) {
	f := New()
	f.Feed([]byte("data: {\"partial\""))
	f.Reset()
	got := f.Feed([]byte("data: {\"x\":1}\n\n"))
	want := []string{`{"x":1}`}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected reset to drop partial buffer, got %v", got)
	}
}
