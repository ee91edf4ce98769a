package util

import (
	"context"
	"testing"
	"time"

	"productcatalog/catalog-service/internal/app/catalog/entity"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// PopularCacheTestSuite тестовый suite для Redis кеша рейтинга
type PopularCacheTestSuite struct {
	suite.Suite
	miniRedis *miniredis.Miniredis
	client    *redis.Client
	cache     *RedisClient
}

func TestPopularCacheSuite(t *testing.T) {
	suite.Run(t, new(PopularCacheTestSuite))
}

func (s *PopularCacheTestSuite) SetupSuite() {
	var err error
	s.miniRedis, err = miniredis.Run()
	require.NoError(s.T(), err)

	s.client = redis.NewClient(&redis.Options{Addr: s.miniRedis.Addr()})
	s.cache = NewRedisClientFromConn(s.client)
}

func (s *PopularCacheTestSuite) SetupTest() {
	s.miniRedis.FlushAll()
}

func (s *PopularCacheTestSuite) TearDownSuite() {
	s.client.Close()
	s.miniRedis.Close()
}

func (s *PopularCacheTestSuite) TestSetAndGet_PreservesOrder() {
	ctx := context.Background()
	ranking := []entity.PopularProduct{
		{Name: "Samsung Galaxy S23", AverageRating: 4.8},
		{Name: "iPhone SE", AverageRating: 4.8},
		{Name: "Xiaomi 13", AverageRating: 4.5},
	}

	s.NoError(s.cache.SetPopular(ctx, 0, ranking, time.Minute))

	result, generation, err := s.cache.GetPopular(ctx)

	s.NoError(err)
	s.Equal(ranking, result)
	s.Equal(int64(0), generation)
}

func (s *PopularCacheTestSuite) TestGet_MissReturnsNil() {
	result, generation, err := s.cache.GetPopular(context.Background())

	s.NoError(err)
	s.Nil(result)
	s.Equal(int64(0), generation)
}

func (s *PopularCacheTestSuite) TestSet_AppliesTTL() {
	ctx := context.Background()
	s.NoError(s.cache.SetPopular(ctx, 0, []entity.PopularProduct{{Name: "OnePlus 11", AverageRating: 2.5}}, 5*time.Minute))

	s.Equal(5*time.Minute, s.miniRedis.TTL(popularCacheKey))

	s.miniRedis.FastForward(5*time.Minute + time.Second)

	result, _, err := s.cache.GetPopular(ctx)
	s.NoError(err)
	s.Nil(result)
}

func (s *PopularCacheTestSuite) TestDelete_InvalidatesAndBumpsGeneration() {
	ctx := context.Background()
	s.NoError(s.cache.SetPopular(ctx, 0, []entity.PopularProduct{{Name: "Google Pixel 7", AverageRating: 2}}, time.Minute))

	s.NoError(s.cache.DeletePopular(ctx))
	s.NoError(s.cache.DeletePopular(ctx))

	s.False(s.miniRedis.Exists(popularCacheKey))
	_, generation, err := s.cache.GetPopular(ctx)
	s.NoError(err)
	s.Equal(int64(2), generation)
}

func (s *PopularCacheTestSuite) TestSet_StaleGenerationRejected() {
	// Arrange - промах прочитал поколение, затем отзыв сбросил кеш
	ctx := context.Background()
	_, generation, err := s.cache.GetPopular(ctx)
	s.Require().NoError(err)

	s.NoError(s.cache.DeletePopular(ctx))

	// Act - старый рейтинг пытаются записать после инвалидации
	err = s.cache.SetPopular(ctx, generation, []entity.PopularProduct{{Name: "Deleted Phone", AverageRating: 5}}, time.Minute)

	// Assert
	s.ErrorIs(err, ErrStalePopular)
	s.False(s.miniRedis.Exists(popularCacheKey))

	_, current, err := s.cache.GetPopular(ctx)
	s.NoError(err)
	s.NoError(s.cache.SetPopular(ctx, current, []entity.PopularProduct{{Name: "iPhone SE", AverageRating: 4.8}}, time.Minute))
	s.True(s.miniRedis.Exists(popularCacheKey))
}

func (s *PopularCacheTestSuite) TestGet_CorruptedValue() {
	s.NoError(s.miniRedis.Set(popularCacheKey, "not json"))

	result, _, err := s.cache.GetPopular(context.Background())

	s.Error(err)
	s.Nil(result)
}

func (s *PopularCacheTestSuite) TestGet_CorruptedGeneration() {
	s.NoError(s.miniRedis.Set(popularGenerationKey, "abc"))

	result, _, err := s.cache.GetPopular(context.Background())

	s.Error(err)
	s.Nil(result)
}
