// Command ordervox-demo is an interactive console for trying out the voice
// pipeline against a small built-in menu and cart.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ordervox/ordervox/internal/config"
	"github.com/ordervox/ordervox/internal/engine"
	"github.com/ordervox/ordervox/internal/storage"
	"github.com/ordervox/ordervox/pkg/types"
)

var demoMenu = []types.Product{
	{ID: "p1", Name: "Pizza Margherita", Price: 18.50, Category: "pizza", Available: true},
	{ID: "p2", Name: "Pizza Prosciutto", Price: 21.00, Category: "pizza", Available: true},
	{ID: "p3", Name: "Burger Classic", Price: 14.00, Category: "burger", Available: true},
	{ID: "p4", Name: "Caesar Salad", Price: 12.00, Category: "salad", Available: true},
	{ID: "p5", Name: "Tiramisu", Price: 8.00, Category: "dessert", Available: false},
}

// demoCart mirrors what a host application would maintain: the engine tells
// it what to change through callbacks, and it feeds the snapshot back on the
// next utterance.
type demoCart struct {
	items []types.CartItem
}

func (c *demoCart) add(item types.CartItem) error {
	for i, it := range c.items {
		if it.ProductID == item.ProductID {
			c.items[i].Quantity += item.Quantity
			return nil
		}
	}
	c.items = append(c.items, item)
	return nil
}

func (c *demoCart) remove(item types.CartItem, qty int) error {
	for i, it := range c.items {
		if it.ProductID != item.ProductID {
			continue
		}
		if qty >= it.Quantity {
			c.items = append(c.items[:i], c.items[i+1:]...)
		} else {
			c.items[i].Quantity -= qty
		}
		return nil
	}
	return fmt.Errorf("%s is not in the cart", item.Name)
}

func (c *demoCart) snapshot() types.Cart {
	items := make([]types.CartItem, len(c.items))
	copy(items, c.items)
	return types.Cart{Items: items}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Storage.StorageEngine = "memory"

	cart := &demoCart{}
	page := "menu"

	callbacks := types.Callbacks{
		OnProductAdd: cart.add,
		OnProductRemove: func(item types.CartItem, qty int) error {
			return cart.remove(item, qty)
		},
		OnNavigate: func(target string) error {
			page = target
			return nil
		},
		OnOrderComplete: func(tx *types.Transaction) error {
			fmt.Printf("\n  ✓ Order %s placed. Total CHF %.2f\n", tx.ID, tx.Total)
			cart.items = nil
			return nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, err := engine.NewVoiceEngine(ctx, cfg, storage.NewMemoryStore(), callbacks)
	if err != nil {
		log.Fatalf("Failed to initialize voice engine: %v", err)
	}
	if err := eng.Start(ctx); err != nil {
		log.Fatalf("Failed to start voice engine: %v", err)
	}
	defer eng.Shutdown(context.Background())

	session := eng.StartSession("")

	fmt.Println("ordervox demo. Type a command in German, Swiss German or English.")
	fmt.Println(`Try: "ich möchte zwei Pizza bestellen", "was kostet der Burger", "zur Kasse".`)
	fmt.Println("Type 'quit' to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "quit" || text == "exit" {
			break
		}

		dctx := types.DomainContext{
			SessionID: session.ID,
			Locale:    cfg.Locale.DefaultLocale,
			Page:      page,
			Products:  demoMenu,
			Cart:      cart.snapshot(),
			Location:  types.Location{Zone: "zurich-city"},
		}

		interp, res := eng.Process(ctx, text, dctx)
		fmt.Printf("  intent: %s (%.0f%% confident)\n", interp.Intent.Name, interp.Confidence*100)
		if res == nil {
			continue
		}
		if res.Success {
			fmt.Printf("  ok: %s\n", res.Message)
		} else {
			fmt.Printf("  failed [%s]: %s\n", res.Code, res.Message)
		}
		for _, s := range res.Suggestions {
			fmt.Printf("    hint: %s\n", s)
		}
		printCart(cart)
	}

	eng.EndSession(session.ID)
	fmt.Println("Bye.")
}

func printCart(cart *demoCart) {
	if len(cart.items) == 0 {
		return
	}
	fmt.Println("  cart:")
	for _, it := range cart.items {
		fmt.Printf("    %d x %-20s CHF %6.2f\n", it.Quantity, it.Name, it.Price*float64(it.Quantity))
	}
}
