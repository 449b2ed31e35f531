package sanitize

import (
	"reflect"
	"testing"
)

func TestTextStripsMarkup(t *testing.T) {
	got := Text("  <script>alert(1)</script>مشروع الطريق  ")
	if got != "مشروع الطريق" {
		t.Fatalf("unexpected sanitized text: %q", got)
	}
}

func TestBodyWalksNestedValues(t *testing.T) {
	body := map[string]interface{}{
		"name":  "<b>كوبري</b> النيل",
		"value": float64(1500000),
		"protocols": []interface{}{
			map[string]interface{}{"protocolName": "<img src=x onerror=alert(1)>محضر"},
		},
	}

	got := Body(body)

	want := map[string]interface{}{
		"name":  "كوبري النيل",
		"value": float64(1500000),
		"protocols": []interface{}{
			map[string]interface{}{"protocolName": "محضر"},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sanitized body mismatch:\ngot  %#v\nwant %#v", got, want)
	}
}

func TestBodyNil(t *testing.T) {
	if Body(nil) != nil {
		t.Fatal("expected nil body to stay nil")
	}
}
