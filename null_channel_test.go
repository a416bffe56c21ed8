package irbridge

import "testing"

func TestNullChannel(t *testing.T) {
	var ch Channel = &NullChannel{}

	if ch.Open() {
		t.Error("Expected Open to fail")
	}
	if ch.IsOpen() || ch.IsAvailable() || ch.HasDataAvailable() {
		t.Error("Expected a closed, unavailable, empty channel")
	}
	if n := ch.Write([]byte("data")); n != 0 {
		t.Errorf("Expected Write to return 0, got %d", n)
	}
	if n := ch.Read(make([]byte, 8)); n != 0 {
		t.Errorf("Expected Read to return 0, got %d", n)
	}
	if ch.Kind() != KindNone {
		t.Errorf("Expected KindNone, got %v", ch.Kind())
	}
	if ch.Stats() != (Stats{}) {
		t.Errorf("Expected zero stats, got %+v", ch.Stats())
	}

	// Close and Dispose are no-ops and may repeat
	ch.Close()
	ch.Dispose()
	ch.Close()
}
