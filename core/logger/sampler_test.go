package logger

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(2, 5)
	var got []bool
	for range 10 {
		got = append(got, s.Allow())
	}
	want := []bool{true, true, false, false, false, true, true, false, false, false}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Allow #%d = %v, want %v (all: %v)", i, got[i], want[i], got)
		}
	}

	s.Set(0, 0)
	for range 3 {
		if !s.Allow() {
			t.Fatal("disabled sampler must let everything through")
		}
	}

	s.Set(9, 3)
	for range 4 {
		if !s.Allow() {
			t.Fatal("numerator above denominator must clamp to always")
		}
	}
}

func TestParseRatioSpec(t *testing.T) {
	cases := []struct {
		spec     string
		num, den int
	}{
		{"", 0, 0},
		{"all", 1, 1},
		{"1/50", 1, 50},
		{" 3 / 10 ", 3, 10},
		{"20", 1, 20},
		{"0", 0, 0},
		{"-1/5", 0, 0},
		{"often", 0, 0},
	}
	for _, tc := range cases {
		num, den := parseRatioSpec(tc.spec)
		if num != tc.num || den != tc.den {
			t.Errorf("parseRatioSpec(%q) = %d/%d, want %d/%d", tc.spec, num, den, tc.num, tc.den)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestAsyncWriterFansOut(t *testing.T) {
	a, b := &bytes.Buffer{}, &bytes.Buffer{}
	w := newAsyncWriter([]io.Writer{a, nil, b}, 16)
	for _, line := range []string{"one\n", "two\n"} {
		if err := w.Write([]byte(line)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if a.String() != "one\ntwo\n" || b.String() != "one\ntwo\n" {
		t.Fatalf("sinks got %q and %q", a.String(), b.String())
	}
	if err := w.Write([]byte("late\n")); !errors.Is(err, errWriterClosed) {
		t.Fatalf("write after close = %v, want errWriterClosed", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush after close: %v", err)
	}
}

func TestAsyncWriterReportsSinkError(t *testing.T) {
	w := newAsyncWriter([]io.Writer{failingWriter{}}, 16)
	_ = w.Write([]byte("x\n"))
	if err := w.Close(); err == nil {
		t.Fatal("expected sink error from Close")
	}
	if err := w.Write([]byte("y\n")); err == nil {
		t.Fatal("expected write to fail after sink error")
	}
}
