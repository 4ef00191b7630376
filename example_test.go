package filecache

import (
	"context"
	"fmt"
	"log"
	"time"
)

func Example() {
	cache, err := New(UsePackagePath)
	if err != nil {
		log.Fatal(err)
	}

	// Refetch at most once per hour
	body := cache.ReadOrUpdateFile(context.Background(), "/example/file.json", "https://example.com/file.txt", time.Hour, false)
	if body == "" {
		log.Fatal("no content")
	}
	fmt.Printf("Cached %d bytes in %s\n", len(body), cache.Path("/example/file.json"))
}
