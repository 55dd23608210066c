package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

type MockURLRegistry struct {
	mock.Mock
}

func (r *MockURLRegistry) Get(shortCode string) (entity.URLEntry, error) {
	args := r.Called(shortCode)
	return args.Get(0).(entity.URLEntry), args.Error(1)
}

func (r *MockURLRegistry) List() []entity.URLEntry {
	args := r.Called()
	list, _ := args.Get(0).([]entity.URLEntry)
	return list
}

func (r *MockURLRegistry) Insert(ctx context.Context, e entity.URLEntry) error {
	args := r.Called(ctx, e)
	return args.Error(0)
}

func (r *MockURLRegistry) Remove(ctx context.Context, shortCode string) error {
	args := r.Called(ctx, shortCode)
	return args.Error(0)
}

func (r *MockURLRegistry) RecordVisit(ctx context.Context, shortCode string) (entity.URLEntry, error) {
	args := r.Called(ctx, shortCode)
	return args.Get(0).(entity.URLEntry), args.Error(1)
}

type MockCodeGenerator struct {
	mock.Mock
}

func (g *MockCodeGenerator) Generate() (string, error) {
	args := g.Called()
	return args.String(0), args.Error(1)
}

type URLUseCaseTestSuite struct {
	suite.Suite
	errUnknown   error
	registryMock *MockURLRegistry
	genMock      *MockCodeGenerator
	uc           *URLUseCase
}

func (suite *URLUseCaseTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
}

func (suite *URLUseCaseTestSuite) SetupSubTest() {
	suite.registryMock = new(MockURLRegistry)
	suite.genMock = new(MockCodeGenerator)
	suite.uc = New(3, suite.registryMock, suite.genMock)
}

func (suite *URLUseCaseTestSuite) TearDownSubTest() {
	suite.registryMock.AssertExpectations(suite.T())
	suite.genMock.AssertExpectations(suite.T())
}

func (suite *URLUseCaseTestSuite) TestNew() {
	suite.Run("default attempts", func() {
		uc := New(0, suite.registryMock, suite.genMock)

		suite.Equal(DefaultMaxAttempts, uc.maxAttempts)
	})
}

func (suite *URLUseCaseTestSuite) TestShortenURL() {
	suite.Run("short code generation error", func() {
		suite.genMock.On("Generate").Once().Return("", suite.errUnknown)

		url, err := suite.uc.ShortenURL(context.Background(), "https://example.com", "demo")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(url)
	})

	suite.Run("code space exhausted", func() {
		suite.genMock.On("Generate").Times(3).Return("123456", nil)
		suite.registryMock.
			On("Insert", context.Background(), mock.AnythingOfType("entity.URLEntry")).
			Times(3).
			Return(entity.ErrShortCodeExists)

		url, err := suite.uc.ShortenURL(context.Background(), "https://example.com", "demo")

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrCodeSpaceExhausted)
		suite.Nil(url)
	})

	suite.Run("unknown error", func() {
		suite.genMock.On("Generate").Once().Return("123456", nil)
		suite.registryMock.
			On("Insert", context.Background(), mock.AnythingOfType("entity.URLEntry")).
			Once().
			Return(suite.errUnknown)

		url, err := suite.uc.ShortenURL(context.Background(), "https://example.com", "demo")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(url)
	})

	suite.Run("retries on collision", func() {
		suite.genMock.On("Generate").Once().Return("111111", nil)
		suite.genMock.On("Generate").Once().Return("222222", nil)
		suite.registryMock.
			On("Insert", context.Background(), entity.URLEntry{
				ShortCode: "111111",
				LongURL:   "https://example.com",
				Note:      "demo",
			}).
			Once().
			Return(entity.ErrShortCodeExists)
		suite.registryMock.
			On("Insert", context.Background(), entity.URLEntry{
				ShortCode: "222222",
				LongURL:   "https://example.com",
				Note:      "demo",
			}).
			Once().
			Return(nil)

		url, err := suite.uc.ShortenURL(context.Background(), "https://example.com", "demo")

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal("222222", url.ShortCode)
	})

	suite.Run("success", func() {
		suite.genMock.On("Generate").Once().Return("123456", nil)
		suite.registryMock.
			On("Insert", context.Background(), entity.URLEntry{
				ShortCode: "123456",
				LongURL:   "https://example.com",
				Note:      "demo",
			}).
			Once().
			Return(nil)

		url, err := suite.uc.ShortenURL(context.Background(), "https://example.com", "demo")

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal("123456", url.ShortCode)
		suite.Equal("https://example.com", url.LongURL)
		suite.Equal("demo", url.Note)
		suite.Zero(url.VisitCount)
		suite.Nil(url.LastVisit)
	})
}

func (suite *URLUseCaseTestSuite) TestGetURL() {
	suite.Run("url not found", func() {
		suite.registryMock.
			On("Get", "123456").
			Once().
			Return(entity.URLEntry{}, entity.ErrURLNotFound)

		url, err := suite.uc.GetURL(context.Background(), "123456")

		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		suite.registryMock.
			On("Get", "123456").
			Once().
			Return(entity.URLEntry{ShortCode: "123456", LongURL: "https://example.com", VisitCount: 1}, nil)

		url, err := suite.uc.GetURL(context.Background(), "123456")

		suite.NoError(err)
		suite.Equal("https://example.com", url.LongURL)
		suite.Equal(uint64(1), url.VisitCount)
	})
}

func (suite *URLUseCaseTestSuite) TestListURLs() {
	suite.Run("success", func() {
		suite.registryMock.
			On("List").
			Once().
			Return([]entity.URLEntry{{ShortCode: "111111"}, {ShortCode: "222222"}})

		list, err := suite.uc.ListURLs(context.Background())

		suite.NoError(err)
		suite.Len(list, 2)
	})
}

func (suite *URLUseCaseTestSuite) TestDeleteURL() {
	suite.Run("url not found", func() {
		suite.registryMock.
			On("Remove", context.Background(), "123456").
			Once().
			Return(entity.ErrURLNotFound)

		err := suite.uc.DeleteURL(context.Background(), "123456")

		suite.ErrorIs(err, entity.ErrURLNotFound)
	})

	suite.Run("success", func() {
		suite.registryMock.
			On("Remove", context.Background(), "123456").
			Once().
			Return(nil)

		err := suite.uc.DeleteURL(context.Background(), "123456")

		suite.NoError(err)
	})
}

func (suite *URLUseCaseTestSuite) TestRedirect() {
	suite.Run("url not found", func() {
		suite.registryMock.
			On("RecordVisit", context.Background(), "123456").
			Once().
			Return(entity.URLEntry{}, entity.ErrURLNotFound)

		longURL, err := suite.uc.Redirect(context.Background(), "123456")

		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Empty(longURL)
	})

	suite.Run("success", func() {
		suite.registryMock.
			On("RecordVisit", context.Background(), "123456").
			Once().
			Return(entity.URLEntry{ShortCode: "123456", LongURL: "https://example.com", VisitCount: 1}, nil)

		longURL, err := suite.uc.Redirect(context.Background(), "123456")

		suite.NoError(err)
		suite.Equal("https://example.com", longURL)
	})
}

func TestURLUseCase(t *testing.T) {
	suite.Run(t, new(URLUseCaseTestSuite))
}
