package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/birbparty/groundhogg-go/sdk"
)

func main() {
	endpoint := os.Getenv("GROUNDHOGG_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:8080"
	}

	config := sdk.DefaultConfig().
		WithEndpoint(endpoint).
		WithTimeout(10 * time.Second).
		WithPage(sdk.Page{URL: "https://shop.example.com/pricing"})
	if key := os.Getenv("GROUNDHOGG_API_KEY"); key != "" {
		config.WithHeader("X-API-Key", key)
	}

	groundhogg, err := sdk.New(config)
	if err != nil {
		log.Fatalf("Failed to create SDK: %v", err)
	}
	defer groundhogg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Example 1: identify a visitor
	fmt.Println("=== Create contact ===")
	created, err := groundhogg.CreateContact(ctx, sdk.Contact{
		Email:     "jane@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
		Fields:    map[string]any{"source": "pricing-page"},
	})
	if err != nil {
		log.Fatalf("Failed to create contact: %v", err)
	}
	fmt.Printf("%s id=%s\n", created.Message, created.Data.ID)

	// Example 2: tags and notes on the current contact
	fmt.Println("\n=== Tags and notes ===")
	tagged, err := groundhogg.Client.AddTags(ctx, 12, 15)
	if err != nil {
		log.Printf("Failed to add tags: %v", err)
	} else {
		fmt.Printf("Tags: %v\n", tagged.Data.Tags)
	}
	if _, err := groundhogg.Client.AddNote(ctx, "Viewed pricing twice this week", ""); err != nil {
		log.Printf("Failed to add note: %v", err)
	}

	// Example 3: tracking
	fmt.Println("\n=== Tracking ===")
	if _, err := groundhogg.Tracker.PageView(ctx, nil); err != nil {
		log.Printf("Page view failed: %v", err)
	}
	if _, err := groundhogg.Tracker.AddToCart(ctx, "sku-pro-annual", 1, map[string]any{"price": 299}); err != nil {
		log.Printf("Add to cart failed: %v", err)
	}
	if _, err := groundhogg.Tracker.Purchase(ctx, "order-1001", 299, nil); err != nil {
		log.Printf("Purchase failed: %v", err)
	}
	fmt.Println("Events sent")

	// Example 4: lookups and error handling
	fmt.Println("\n=== Lookups ===")
	found, err := groundhogg.Client.FindByEmail(ctx, "nobody@example.com")
	switch {
	case err != nil:
		log.Printf("Lookup failed: %v", err)
	case found.Data == nil:
		fmt.Println("No contact with that email")
	default:
		fmt.Printf("Found contact %s\n", found.Data.ID)
	}

	if err := groundhogg.SetContact(ctx, 999999); err != nil {
		log.Fatalf("Failed to switch contact: %v", err)
	}
	if _, err := groundhogg.Client.GetContact(ctx); err != nil {
		if sdk.IsNoContact(err) {
			fmt.Println("Contact 999999 does not exist")
		} else {
			log.Printf("Get failed: %v", err)
		}
	}
}
