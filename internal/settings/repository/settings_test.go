package repository

import (
	"testing"
	"time"

	"shelterwalk/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestDefaultResetWrites(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	writes := defaultResetWrites(now)
	if len(writes) != len(model.DefaultSettings) {
		t.Fatalf("expected one write per default, got %d for %d defaults",
			len(writes), len(model.DefaultSettings))
	}

	seen := make(map[string]bool)
	for _, w := range writes {
		upd, ok := w.(*mongo.UpdateOneModel)
		if !ok {
			t.Fatalf("expected an update model, got %T", w)
		}
		if upd.Upsert == nil || !*upd.Upsert {
			t.Error("reset writes must upsert so missing keys are recreated")
		}

		key := upd.Filter.(bson.M)["_id"].(string)
		want, known := model.DefaultSettings[key]
		if !known {
			t.Fatalf("write targets unknown key %q", key)
		}

		set := upd.Update.(bson.M)["$set"].(bson.M)
		if set["value"] != want {
			t.Errorf("key %s: expected default %q, got %v", key, want, set["value"])
		}
		seen[key] = true
	}

	if len(seen) != len(model.DefaultSettings) {
		t.Errorf("expected every default key covered, got %v", seen)
	}
}
