package base

import (
	"bytes"
	"net"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte("hello"),
		{},
		bytes.Repeat([]byte("x"), bufferSize+1), // larger than the pooled buffer
	}

	for _, payload := range cases {
		client, server := net.Pipe()

		errCh := make(chan error, 1)
		go func() {
			defer client.Close()
			errCh <- writeFrame(client, payload)
		}()

		got, err := readFrame(server, make([]byte, bufferSize))
		server.Close()
		if err != nil {
			t.Fatalf("failed to read frame of %d bytes: %v", len(payload), err)
		}
		if werr := <-errCh; werr != nil {
			t.Fatalf("failed to write frame of %d bytes: %v", len(payload), werr)
		}
		if !bytes.Equal(payload, got) {
			t.Errorf("frame mismatch for %d bytes", len(payload))
		}
	}
}

func TestReadFrameRejectsOversizedHeader(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	go func() {
		defer client.Close()
		// header claiming a frame beyond maxFrameSize
		client.Write([]byte{0xff, 0xff, 0xff, 0xff})
	}()

	if _, err := readFrame(server, nil); err == nil {
		t.Error("expected error for oversized frame header")
	}
}

func TestWriteFrameRejectsOversizedPayload(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	payload := make([]byte, maxFrameSize+1)
	if err := writeFrame(client, payload); err == nil {
		t.Error("expected error for oversized payload")
	}
}
