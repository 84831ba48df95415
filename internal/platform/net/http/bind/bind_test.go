package bind

import (
	"testing"

	perr "sword/internal/platform/errors"
)

type upload struct {
	Location    string `header:"Location" validate:"required,url"`
	ContentType string `header:"Content-Type" validate:"required,mediatype"`
	Length      int64  `validate:"gte=-1"`
}

func TestStruct(t *testing.T) {
	ok := upload{Location: "http://localhost/sword/deposit/1/2", ContentType: "application/zip", Length: -1}

	cases := []struct {
		name  string
		edit  func(*upload)
		field string
		msg   string
	}{
		{"valid", func(*upload) {}, "", ""},
		{"params allowed", func(u *upload) { u.ContentType = "text/xml; charset=UTF-8" }, "", ""},
		{"missing location", func(u *upload) { u.Location = "" }, "Location", "Location is a required field"},
		{"relative location", func(u *upload) { u.Location = "/sword/deposit" }, "Location", "Location must be an absolute URL"},
		{"bad media type", func(u *upload) { u.ContentType = "zip" }, "Content-Type", "Content-Type must be a media type"},
		{"length", func(u *upload) { u.Length = -2 }, "Length", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := ok
			tc.edit(&in)
			err := Struct(in)
			if tc.field == "" {
				if err != nil {
					t.Fatalf("unexpected: %v", err)
				}
				return
			}
			if !perr.IsCode(err, perr.ErrorCodeValidation) {
				t.Fatalf("code = %v (%v)", perr.CodeOf(err), err)
			}
			pe, _ := perr.As(err)
			if pe == nil || pe.Field() != tc.field {
				t.Fatalf("field = %v, want %q", pe, tc.field)
			}
			if tc.msg != "" && pe.ToWire().Message != tc.msg {
				t.Fatalf("message = %q, want %q", pe.ToWire().Message, tc.msg)
			}
		})
	}
}

func TestStructInvalidTarget(t *testing.T) {
	if err := Struct(42); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
}

func TestFieldAndMessage(t *testing.T) {
	if f, m := FieldAndMessage(nil); f != "" || m != "" {
		t.Fatalf("nil = %q %q", f, m)
	}
	err := Get().Validator.Struct(upload{Location: "http://x", ContentType: ""})
	f, m := FieldAndMessage(err)
	if f != "Content-Type" || m != "Content-Type is a required field" {
		t.Fatalf("got %q %q", f, m)
	}
}
