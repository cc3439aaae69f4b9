//go:build integration

package repository

import (
	"context"
	"testing"

	"eventboard/data/filters"
	"eventboard/data/models"

	"github.com/brianvoe/gofakeit/v6"
)

func SeedDBforBenchmark(b *testing.B) {
	defer handleRecover("seeding DB")
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		e := models.Event{
			Title:              gofakeit.LoremIpsumSentence(4),
			Description:        gofakeit.LoremIpsumSentence(15),
			DateStart:          gofakeit.FutureDate(),
			ParticipantsNumber: 75,
			IsPrivate:          gofakeit.Bool(),
		}
		if _, err := testRepo.Create(ctx, e); err != nil {
			b.Fatalf("Could not seed DB: %s", err)
		}
	}
}

func BenchmarkCreate(b *testing.B) {
	defer handleRecover("BenchmarkCreate")
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e := models.Event{
			Title:              gofakeit.LoremIpsumSentence(4),
			Description:        gofakeit.LoremIpsumSentence(15),
			DateStart:          gofakeit.FutureDate(),
			ParticipantsNumber: 75,
		}
		if _, err := testRepo.Create(ctx, e); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkQueryEvents(b *testing.B, pageSize int, f filters.Event) {
	SeedDBforBenchmark(b)
	repo := &SqlRepo{DB: testDB, PageSize: pageSize}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := repo.QueryEvents(ctx, f, ""); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkQueryEvents_PageSize9(b *testing.B) {
	defer handleRecover("BenchmarkQueryEvents_PageSize9")
	benchmarkQueryEvents(b, DefaultPageSize, filters.Event{})
}

func BenchmarkQueryEvents_PageSize100(b *testing.B) {
	defer handleRecover("BenchmarkQueryEvents_PageSize100")
	benchmarkQueryEvents(b, 100, filters.Event{})
}

func BenchmarkQueryEvents_PageSize1000(b *testing.B) {
	defer handleRecover("BenchmarkQueryEvents_PageSize1000")
	benchmarkQueryEvents(b, 1000, filters.Event{})
}

func BenchmarkQueryEvents_Filtered(b *testing.B) {
	defer handleRecover("BenchmarkQueryEvents_Filtered")
	free := models.FullnessFree
	benchmarkQueryEvents(b, DefaultPageSize, filters.Event{Fullness: &free, Available: true})
}
