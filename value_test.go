package tripgraph

import (
	"testing"
)

func TestFactStorePutRecordListUpsertsByID(t *testing.T) {
	fs := NewFactStore()
	fs.Put("lodging_bookings", RecordList{
		{"id": Scalar("b1"), "name": Scalar("Seaside Inn"), "room_type": Scalar("double")},
		{"id": Scalar("b2"), "name": Scalar("Harbor Lodge")},
	})
	fs.Put("lodging_bookings", RecordList{
		{"id": Scalar("b1"), "room_type": Scalar("suite")},
		{"id": Scalar("b3"), "name": Scalar("Cliff House")},
	})

	v, ok := fs.Get("lodging_bookings")
	if !ok {
		t.Fatal("key missing after merge")
	}
	list, ok := v.(RecordList)
	if !ok {
		t.Fatalf("expected RecordList, got %T", v)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 records after upsert, got %d", len(list))
	}

	var b1 Record
	for _, r := range list {
		if id, _ := r.Field("id"); id != nil && id.String() == "b1" {
			b1 = r
		}
	}
	if b1 == nil {
		t.Fatal("record b1 lost in merge")
	}
	if room, _ := b1.Field("room_type"); room == nil || room.String() != "suite" {
		t.Errorf("incoming field should win for matching id, got %v", room)
	}
	if name, _ := b1.Field("name"); name == nil || name.String() != "Seaside Inn" {
		t.Errorf("fields absent from the update must survive, got %v", name)
	}
}

func TestFactStorePutScalarListAppendsAsSet(t *testing.T) {
	fs := NewFactStore()
	fs.Put("search_findings", ScalarList{Scalar("great views"), Scalar("friendly staff")})
	fs.Put("search_findings", ScalarList{Scalar("friendly staff"), Scalar("steep stairs")})

	v, _ := fs.Get("search_findings")
	list := v.(ScalarList)
	if len(list) != 3 {
		t.Fatalf("expected set-append to yield 3 entries, got %d: %v", len(list), list)
	}
	if list[0] != "great views" || list[2] != "steep stairs" {
		t.Errorf("existing order must be preserved, new entries appended: %v", list)
	}
}

func TestFactStorePutScalarOverwrites(t *testing.T) {
	fs := NewFactStore()
	fs.Put("weather_report", Scalar("sunny"))
	fs.Put("weather_report", Scalar("rain moving in"))

	v, _ := fs.Get("weather_report")
	if v.String() != "rain moving in" {
		t.Errorf("scalar update should overwrite, got %q", v.String())
	}
}

func TestFactStorePutMismatchedKindsIncomingWins(t *testing.T) {
	fs := NewFactStore()
	fs.Put("transport", Scalar("tbd"))
	fs.Put("transport", RecordList{{"id": Scalar("t1"), "vehicle_type": Scalar("minivan")}})

	v, _ := fs.Get("transport")
	if v.Kind() != KindRecordList {
		t.Errorf("kind conflict should resolve to the incoming value, got kind %v", v.Kind())
	}
}

func TestFactStoreSnapshotIsIsolated(t *testing.T) {
	fs := NewFactStore()
	fs.Put("traveler", Record{"name": Scalar("Jordan Lee"), "handicap": Scalar("12")})

	snap := fs.Snapshot()
	rec := snap["traveler"].(Record)
	rec["name"] = Scalar("Someone Else")

	v, _ := fs.Get("traveler")
	name, _ := v.(Record).Field("name")
	if name.String() != "Jordan Lee" {
		t.Error("mutating a snapshot must not reach the store")
	}
}

func TestFactStoreMergeMultipleKeys(t *testing.T) {
	fs := NewFactStore()
	fs.Merge(map[string]Value{
		"events":  RecordList{{"id": Scalar("e1"), "location": Scalar("Harbor Point")}},
		"tee_off": Scalar("8:40 AM"),
	})
	if fs.Len() != 2 {
		t.Fatalf("expected 2 keys, got %d", fs.Len())
	}
	keys := fs.Keys()
	if len(keys) != 2 {
		t.Errorf("Keys should list every key, got %v", keys)
	}
}

func TestRecordFieldFallbackKeys(t *testing.T) {
	r := Record{"course_name": Scalar("Dunes Links")}
	if v, ok := r.Field("name", "course_name"); !ok || v.String() != "Dunes Links" {
		t.Errorf("Field should try keys in order, got %v %v", v, ok)
	}
	if _, ok := r.Field("address"); ok {
		t.Error("missing key should report not found")
	}
}
