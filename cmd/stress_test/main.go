package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Morsalin012/sushi-cafe-web/internal/adapter/storage"
	"github.com/Morsalin012/sushi-cafe-web/internal/core/domain"
	"github.com/Morsalin012/sushi-cafe-web/internal/core/service"
)

const productID = "stress-omakase"

func main() {
	initialStock := flag.Int("stock", 20, "units of the product on hand")
	totalRequests := flag.Int("requests", 50, "concurrent customers, one unit each")
	flag.Parse()

	ctx := context.Background()

	// Initialize store and services
	store := storage.NewMemoryAdapter()
	locker := storage.NewMemoryLocker()
	orders := service.NewOrderService(store, locker, storage.NewMemoryIdempotency(time.Hour))
	carts := service.NewCartService(store, locker)

	err := store.SaveProduct(ctx, domain.Product{
		ID: productID, Name: "Omakase Box", Description: "Chef's selection",
		Category: domain.CategorySpecials, Price: 1500, Stock: *initialStock, IsAvailable: true,
	})
	if err != nil {
		log.Fatalf("failed to seed product: %v", err)
	}
	for i := 0; i < *totalRequests; i++ {
		id := fmt.Sprintf("user-%d", i)
		if err := store.CreateUser(ctx, domain.User{ID: id, Name: id, Email: id + "@example.com", Role: domain.RoleCustomer}); err != nil {
			log.Fatalf("failed to create user: %v", err)
		}
		if _, err := carts.AddItem(ctx, id, productID, 1, ""); err != nil {
			log.Fatalf("failed to fill cart: %v", err)
		}
	}

	// Counters
	var successCount atomic.Int32
	var failCount atomic.Int32

	// Spawn concurrent checkouts
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *totalRequests; i++ {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()

			_, err := orders.PlaceOrder(ctx, service.PlaceOrderInput{UserID: userID, IdempotencyKey: "checkout"})
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(fmt.Sprintf("user-%d", i))
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	fail := failCount.Load()
	want := min(*initialStock, *totalRequests)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", *initialStock)
	fmt.Printf("Total Requests:   %d\n", *totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if int(success) == want && int(fail) == *totalRequests-want {
		fmt.Printf("PASS: Exactly %d orders succeeded, %d failed\n", want, *totalRequests-want)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d fail, got %d/%d\n", want, *totalRequests-want, success, fail)
	}

	p, err := store.GetProduct(ctx, productID)
	if err != nil || p == nil {
		log.Fatalf("failed to read product: %v", err)
	}
	fmt.Printf("Final Stock: %d\n", p.Stock)
	if p.Stock == *initialStock-want {
		fmt.Println("PASS: Stock never oversold")
	} else {
		fmt.Printf("FAIL: Expected stock %d, got %d\n", *initialStock-want, p.Stock)
	}

	_, total, _ := store.ListOrders(ctx, domain.OrderFilter{Page: domain.Page{Number: 1, Limit: 1}})
	fmt.Printf("Stored Orders: %d\n", total)
}
