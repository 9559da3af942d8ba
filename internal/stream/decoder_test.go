package stream

import (
	"io"
	"strings"
	"testing"
)

func drain(t *testing.T, d *Decoder) []Frame {
	t.Helper()
	var frames []Frame
	for {
		f, err := d.Next()
		if err == io.EOF {
			return frames
		}
		if err != nil {
			t.Fatalf("unexpected decode error: %v", err)
		}
		frames = append(frames, f)
	}
}

func TestDecoder_SingleFrame(t *testing.T) {
	d := NewDecoder(strings.NewReader("event: new_coin\ndata: {\"name\":\"DOGE\"}\n\n"))

	frames := drain(t, d)
	if len(frames) != 1 {
		t.Fatalf("want 1 frame, got %d", len(frames))
	}
	if frames[0].Name != "new_coin" {
		t.Fatalf("want name=new_coin got=%q", frames[0].Name)
	}
	if string(frames[0].Data) != `{"name":"DOGE"}` {
		t.Fatalf("payload mismatch: %q", frames[0].Data)
	}
}

func TestDecoder_FrameBoundaries(t *testing.T) {
	t.Run("count_equals_complete_groups", func(t *testing.T) {
		// 3 组空行结尾，只有 2 组同时有 event 名和 data 行
		in := "event: trade\ndata: {}\n\n" +
			"data: {\"orphan\":true}\n\n" + // 没有 event 名，丢
			"event: graduated\ndata: {\"a\":1}\n\n"
		frames := drain(t, NewDecoder(strings.NewReader(in)))
		if len(frames) != 2 {
			t.Fatalf("want 2 frames, got %d", len(frames))
		}
	})

	t.Run("name_without_data_discarded", func(t *testing.T) {
		frames := drain(t, NewDecoder(strings.NewReader("event: trade\n\n")))
		if len(frames) != 0 {
			t.Fatalf("want 0 frames, got %d", len(frames))
		}
	})

	t.Run("no_trailing_blank_no_frame", func(t *testing.T) {
		// 流在帧结束前断掉：未完结的帧不发出
		frames := drain(t, NewDecoder(strings.NewReader("event: trade\ndata: {}")))
		if len(frames) != 0 {
			t.Fatalf("want 0 frames, got %d", len(frames))
		}
	})
}

func TestDecoder_MultiDataLines(t *testing.T) {
	in := "event: trade\ndata: {\"a\":\ndata: 1}\n\n"
	frames := drain(t, NewDecoder(strings.NewReader(in)))
	if len(frames) != 1 {
		t.Fatalf("want 1 frame, got %d", len(frames))
	}
	// 多行 data 用 '\n' 拼接
	if string(frames[0].Data) != "{\"a\":\n1}" {
		t.Fatalf("joined payload mismatch: %q", frames[0].Data)
	}
}

func TestDecoder_EventNameOverwrite(t *testing.T) {
	in := "event: trade\nevent: graduated\ndata: {}\n\n"
	frames := drain(t, NewDecoder(strings.NewReader(in)))
	if len(frames) != 1 || frames[0].Name != "graduated" {
		t.Fatalf("last event name should win, got %+v", frames)
	}
}

func TestDecoder_MalformedJSONDropped(t *testing.T) {
	var decodeErrs int
	d := NewDecoder(strings.NewReader("event: trade\ndata: {not json\n\nevent: trade\ndata: {}\n\n"))
	d.OnDecodeError = func() { decodeErrs++ }

	frames := drain(t, d)
	if len(frames) != 1 {
		t.Fatalf("want 1 valid frame, got %d", len(frames))
	}
	if decodeErrs != 1 {
		t.Fatalf("want exactly 1 decode error, got %d", decodeErrs)
	}
}

func TestDecoder_CommentAndUnknownLines(t *testing.T) {
	var activity int
	in := ": keepalive\nretry: 3000\nevent: trade\ndata: {}\n\n"
	d := NewDecoder(strings.NewReader(in))
	d.OnActivity = func() { activity++ }

	frames := drain(t, d)
	if len(frames) != 1 {
		t.Fatalf("comment/unknown lines must not break framing, got %d frames", len(frames))
	}
	// 每一行都算活跃（含注释和未知行）
	if activity != 5 {
		t.Fatalf("want 5 activity ticks, got %d", activity)
	}
}

func TestDecoder_IDLine(t *testing.T) {
	in := "event: trade\nid: 42\ndata: {}\n\n"
	frames := drain(t, NewDecoder(strings.NewReader(in)))
	if len(frames) != 1 || frames[0].ID != "42" {
		t.Fatalf("id line should attach to frame, got %+v", frames)
	}
}
