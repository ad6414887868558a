package textutil

import (
	"reflect"
	"testing"
)

func TestNormalizeStringMap(t *testing.T) {
	t.Run("trims keys and values", func(t *testing.T) {
		input := map[string]string{
			" ORDERSIM_SEED ": " 42 ",
			"ORDERSIM_LOG":    " debug ",
			"empty":           " ",
			" ":               "ignored",
			"":                "ignore",
		}

		expected := map[string]string{
			"ORDERSIM_SEED": "42",
			"ORDERSIM_LOG":  "debug",
			"empty":         "",
		}

		actual := NormalizeStringMap(input)
		if !reflect.DeepEqual(actual, expected) {
			t.Fatalf("expected %#v got %#v", expected, actual)
		}
	})

	t.Run("returns nil for nil or empty input", func(t *testing.T) {
		if NormalizeStringMap(nil) != nil {
			t.Fatalf("expected nil for nil input")
		}
		if NormalizeStringMap(map[string]string{" ": "x"}) != nil {
			t.Fatalf("expected nil when every key is blank")
		}
	})
}

func TestSplitList(t *testing.T) {
	got := SplitList(" csv, ,daily ,xlsx,")
	want := []string{"csv", "daily", "xlsx"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v got %v", want, got)
	}
	if len(SplitList("")) != 0 {
		t.Fatalf("expected empty result for blank input")
	}
}

func TestSplitPair(t *testing.T) {
	key, value, ok := SplitPair(" 0.10 = 0.08 ")
	if !ok || key != "0.10" || value != "0.08" {
		t.Fatalf("unexpected split %q %q %v", key, value, ok)
	}
	key, _, ok = SplitPair("2024-12-24")
	if ok || key != "2024-12-24" {
		t.Fatalf("expected missing separator, got %q %v", key, ok)
	}
}
