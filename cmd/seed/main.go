package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shinyyama/evolon-market/internal/config"
	"github.com/shinyyama/evolon-market/internal/db"
	"github.com/shinyyama/evolon-market/internal/model"
	"github.com/shinyyama/evolon-market/internal/repository"
	"github.com/shinyyama/evolon-market/internal/service"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type seedItem struct {
	Title       string
	Description string
	Price       decimal.Decimal
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Store != config.StoreMySQL {
		return fmt.Errorf("seed requires STORE=mysql, got %q", cfg.Store)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	seller := strings.TrimSpace(os.Getenv("SEED_SELLER_UID"))
	if seller == "" {
		seller = "seed-seller"
	}

	canSeed, err := shouldSeed(ctx, gdb, seller)
	if err != nil {
		return err
	}
	if !canSeed {
		log.Printf("seller %s already has items; skipping seed (set FORCE_SEED=true to override)", seller)
		return nil
	}

	items := service.NewItemService(repository.NewItemRepository(gdb), cfg.PaymentCurrency)
	tx := repository.NewTransactor(gdb)
	list := buildSeedItems()
	err = tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, it := range list {
			if _, err := items.Create(ctx, seller, it.Title, it.Description, it.Price, ""); err != nil {
				return fmt.Errorf("insert item %q: %w", it.Title, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("seeded %d items for %s", len(list), seller)
	return nil
}

func buildSeedItems() []seedItem {
	type cat struct {
		Slug   string
		Titles []string
		Price  int64
	}
	categories := []cat{
		{Slug: "fashion", Price: 4200, Titles: []string{"リラックスフィットフーディ", "オーガニックコットンTシャツ", "デニムクラシックジーンズ"}},
		{Slug: "phones-tablets-pcs", Price: 24000, Titles: []string{"14インチモバイルノート", "軽量タブレット64GB", "ワイヤレスメカニカルキーボード"}},
		{Slug: "home-interior", Price: 7800, Titles: []string{"無垢材サイドテーブル", "コットンラグ 140x200", "スタッキングシェルフ"}},
		{Slug: "books-magazines-comics", Price: 1400, Titles: []string{"SF小説アンソロジー", "旅雑誌最新号", "コミック新装版"}},
		{Slug: "outdoor-travel", Price: 9200, Titles: []string{"コンパクトチェア", "チタンマグセット", "バックパック28L"}},
		{Slug: "camera-photo", Price: 12800, Titles: []string{"ミラーレス用単焦点レンズ", "カメラ用スリングバッグ", "カーボントラベルトライポッド"}},
	}

	var items []seedItem
	for _, c := range categories {
		for i, t := range c.Titles {
			price := c.Price + int64((i+1)*100)
			desc := fmt.Sprintf("%s（%s）。新品に近い自宅保管品です。即購入OK、返品不可。", t, c.Slug)
			items = append(items, seedItem{
				Title:       t,
				Description: desc,
				Price:       decimal.NewFromInt(price),
			})
		}
	}
	return items
}

func shouldSeed(ctx context.Context, gdb *gorm.DB, seller string) (bool, error) {
	var cnt int64
	if err := gdb.WithContext(ctx).Model(&model.Item{}).Where("seller_uid = ?", seller).Count(&cnt).Error; err != nil {
		return false, fmt.Errorf("count items: %w", err)
	}
	if cnt == 0 {
		return true, nil
	}
	return strings.EqualFold(os.Getenv("FORCE_SEED"), "true"), nil
}
