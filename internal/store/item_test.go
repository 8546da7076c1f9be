package store

import (
	"reflect"
	"testing"

	"github.com/shelfsnap/apiserver/types"
)

func TestEnsureImagePathsLegacyRecord(t *testing.T) {
	item := types.CatalogItem{
		ID:        "abc",
		ImagePath: "/objects/items/abc.jpg",
	}
	EnsureImagePaths(&item)

	if !reflect.DeepEqual(item.ImagePaths, []string{"/objects/items/abc.jpg"}) {
		t.Fatalf("ImagePaths = %v", item.ImagePaths)
	}
	if item.ImagePath != "/objects/items/abc.jpg" {
		t.Fatalf("ImagePath changed: %q", item.ImagePath)
	}
}

func TestEnsureImagePathsIdempotent(t *testing.T) {
	item := types.CatalogItem{ImagePath: "/objects/items/x.png"}
	EnsureImagePaths(&item)
	first := append([]string(nil), item.ImagePaths...)
	EnsureImagePaths(&item)
	if !reflect.DeepEqual(item.ImagePaths, first) {
		t.Fatalf("second pass changed ImagePaths: %v != %v", item.ImagePaths, first)
	}
}

func TestEnsureImagePathsPopulatedListUntouched(t *testing.T) {
	paths := []string{"/objects/items/a/0.jpg", "/objects/items/a/1.png"}
	item := types.CatalogItem{
		ImagePath:  "/objects/items/a/0.jpg",
		ImagePaths: append([]string(nil), paths...),
	}
	EnsureImagePaths(&item)
	if !reflect.DeepEqual(item.ImagePaths, paths) {
		t.Fatalf("ImagePaths rewritten: %v", item.ImagePaths)
	}
}

func TestEnsureImagePathsEmptyItem(t *testing.T) {
	var item types.CatalogItem
	EnsureImagePaths(&item)
	if item.ImagePaths != nil {
		t.Fatalf("empty item gained paths: %v", item.ImagePaths)
	}
}
