package clipboard

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func fakeLookPath(found ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, f := range found {
			if f == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		goos  string
		found []string
		want  []string
	}{
		{"darwin", []string{"pbcopy"}, []string{"/usr/bin/pbcopy"}},
		{"linux", []string{"xsel", "xclip"}, []string{"/usr/bin/xclip", "-selection", "clipboard"}},
		{"linux", []string{"wl-copy", "xclip"}, []string{"/usr/bin/wl-copy"}},
		{"linux", []string{"xsel"}, []string{"/usr/bin/xsel", "--clipboard", "--input"}},
		{"windows", []string{"clip.exe"}, []string{"/usr/bin/clip.exe"}},
		{"windows", []string{"pwsh"}, []string{"/usr/bin/pwsh", "-NoLogo", "-NoProfile", "-Command", "$input | Set-Clipboard"}},
		{"linux", nil, nil},
	}
	for _, tt := range tests {
		got, ok := detect(tt.goos, fakeLookPath(tt.found...))
		if ok != (tt.want != nil) || !reflect.DeepEqual(got, tt.want) {
			t.Errorf("detect(%s, %v) = %v, %v; want %v", tt.goos, tt.found, got, ok, tt.want)
		}
	}
}

func TestWrite_OSC52Fallback(t *testing.T) {
	var buf bytes.Buffer
	s := &System{terminal: &buf}
	if err := s.Write(context.Background(), "hello"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	enc := base64.StdEncoding.EncodeToString([]byte("hello"))
	if !strings.Contains(buf.String(), enc) {
		t.Errorf("osc52 output %q does not carry %q", buf.String(), enc)
	}
}

func TestWrite_Unavailable(t *testing.T) {
	s := &System{}
	if err := s.Write(context.Background(), "x"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestWrite_CommandFailure(t *testing.T) {
	s := &System{cmd: []string{"/nonexistent/clipboard-tool"}}
	if err := s.Write(context.Background(), "x"); err == nil {
		t.Error("expected error from missing command")
	}
}
