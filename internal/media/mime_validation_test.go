package media

import (
	"testing"

	"github.com/gabriel-vasile/mimetype"

	"github.com/angelmondragon/memorial-backend/pkg/enums"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		declared string
		kind     enums.MediaKind
		wantErr  bool
	}{
		{name: "jpeg", file: "a.JPG", declared: "image/jpeg", kind: enums.MediaKindImage},
		{name: "declared with params", file: "a.png", declared: "image/png; charset=binary", kind: enums.MediaKindImage},
		{name: "mov", file: "a.mov", declared: "video/quicktime", kind: enums.MediaKindVideo},
		{name: "webm audio", file: "a.webm", declared: "audio/webm", kind: enums.MediaKindAudio},
		{name: "wav", file: "a.wav", declared: "audio/x-wav", kind: enums.MediaKindAudio},
		{name: "aac upload rejected", file: "a.aac", declared: "audio/aac", wantErr: true},
		{name: "no extension", file: "blob", declared: "image/png", wantErr: true},
		{name: "missing type", file: "a.png", declared: "", wantErr: true},
		{name: "mismatch", file: "a.mp3", declared: "image/png", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kind, _, err := classify(tc.file, tc.declared)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got kind %s", kind)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if kind != tc.kind {
				t.Fatalf("expected %s, got %s", tc.kind, kind)
			}
		})
	}
}

func TestContentMatches(t *testing.T) {
	if !contentMatches(enums.MediaKindImage, mimetype.Detect(pngBody)) {
		t.Fatal("png should match image")
	}
	if contentMatches(enums.MediaKindVideo, mimetype.Detect(pngBody)) {
		t.Fatal("png should not match video")
	}
	if !contentMatches(enums.MediaKindAudio, mimetype.Detect(mp4Body)) {
		t.Fatal("mp4 container should be accepted for audio")
	}
	if contentMatches(enums.MediaKindImage, mimetype.Detect([]byte("<html><body></body></html>"))) {
		t.Fatal("html should be rejected")
	}
	if !contentMatches(enums.MediaKindImage, mimetype.Detect([]byte{0x01, 0x02, 0x03})) {
		t.Fatal("unrecognized content should pass")
	}
}
