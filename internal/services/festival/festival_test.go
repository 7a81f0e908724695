package festival

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/manifest-festivals/manifest/internal/crud"
	"github.com/manifest-festivals/manifest/internal/models"
	"github.com/manifest-festivals/manifest/internal/notification"
	"github.com/manifest-festivals/manifest/internal/recommend"
	"github.com/manifest-festivals/manifest/internal/testinfra"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification.FestivalNotification
}

func (r *recordingNotifier) Enqueue(n notification.FestivalNotification) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return true
}

type stubRecommender struct {
	ids []uint
	err error
}

func (s stubRecommender) Recommend(ctx context.Context, userID uint, limit int) ([]uint, error) {
	return s.ids, s.err
}

func request(fx testinfra.Fixtures, title string) models.FestivalUpsertRequest {
	return models.FestivalUpsertRequest{
		Title:         title,
		StartDate:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC),
		BasePrice:     decimal.RequireFromString("100.00"),
		CityID:        fx.City.ID,
		SubcategoryID: fx.Subcategory.ID,
		OrganizerID:   fx.Organizer.ID,
	}
}

func setup(t *testing.T) (*gorm.DB, testinfra.Fixtures, *Service, *recordingNotifier) {
	t.Helper()
	db := testinfra.NewDB(t)
	fx := testinfra.Seed(t, db)
	notifier := &recordingNotifier{}
	svc := NewService(db, Options{Notifier: notifier, RecipientRole: "User"})
	return db, fx, svc, notifier
}

func TestInsertFestivalDenormalizesAndNotifies(t *testing.T) {
	_, fx, svc, notifier := setup(t)

	resp, err := svc.Festivals.Insert(context.Background(), request(fx, "Test Fest"))
	require.NoError(t, err)
	assert.Equal(t, "Test Fest", resp.Title)
	assert.True(t, resp.IsActive)
	assert.Equal(t, "Sarajevo", resp.CityName)
	assert.Equal(t, "Bosnia and Herzegovina", resp.CountryName)
	assert.Equal(t, fx.Country.Flag, resp.CountryFlag)
	assert.Equal(t, "Jazz", resp.SubcategoryName)
	assert.Equal(t, "Music", resp.CategoryName)
	assert.Equal(t, "Jazz Association", resp.OrganizerName)
	assert.NotNil(t, resp.Assets)

	require.Len(t, notifier.sent, 1)
	n := notifier.sent[0]
	assert.Equal(t, notification.Created, n.NotificationType)
	assert.Equal(t, resp.ID, n.FestivalID)
	assert.Equal(t, "Sarajevo", n.CityName)
	assert.Equal(t, []string{fx.User.Email}, n.UserEmails, "administrators are not notified")

	upd := request(fx, "Test Fest 2")
	_, err = svc.Festivals.Update(context.Background(), resp.ID, upd)
	require.NoError(t, err)
	require.Len(t, notifier.sent, 2)
	assert.Equal(t, notification.Updated, notifier.sent[1].NotificationType)
	assert.Equal(t, "Test Fest 2", notifier.sent[1].Title)
}

func TestFestivalValidation(t *testing.T) {
	_, fx, svc, notifier := setup(t)
	ctx := context.Background()

	cases := map[string]func(r *models.FestivalUpsertRequest){
		"end before start": func(r *models.FestivalUpsertRequest) { r.EndDate = r.StartDate.Add(-time.Hour) },
		"negative price":   func(r *models.FestivalUpsertRequest) { r.BasePrice = decimal.NewFromInt(-1) },
		"missing city":     func(r *models.FestivalUpsertRequest) { r.CityID = 999 },
		"missing subcat":   func(r *models.FestivalUpsertRequest) { r.SubcategoryID = 999 },
		"missing org":      func(r *models.FestivalUpsertRequest) { r.OrganizerID = 999 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := request(fx, "Broken")
			mutate(&req)
			_, err := svc.Festivals.Insert(ctx, req)
			require.Error(t, err)
			assert.True(t, crud.IsValidation(err))
		})
	}

	// Same-day festivals are fine.
	req := request(fx, "One Day")
	req.EndDate = req.StartDate
	created, err := svc.Festivals.Insert(ctx, req)
	require.NoError(t, err)

	req.BasePrice = decimal.NewFromInt(-5)
	_, err = svc.Festivals.Update(ctx, created.ID, req)
	assert.True(t, crud.IsValidation(err))

	assert.Len(t, notifier.sent, 1, "rejected writes do not notify")
}

func TestFestivalFilters(t *testing.T) {
	db, fx, svc, _ := setup(t)
	ctx := context.Background()

	jazz := testinfra.CreateFestival(t, db, fx, "Sarajevo Jazz Fest", "40")
	other := testinfra.CreateFestival(t, db, fx, "Winter Fest", "20")
	require.NoError(t, db.Model(&other).Update("start_date", time.Date(2026, 12, 20, 0, 0, 0, 0, time.UTC)).Error)

	mostar := models.City{Name: "Mostar", CountryID: fx.Country.ID}
	require.NoError(t, db.Create(&mostar).Error)
	bridge := testinfra.CreateFestival(t, db, fx, "Bridge Days", "10")
	require.NoError(t, db.Model(&bridge).Update("city_id", mostar.ID).Error)

	require.NoError(t, db.Create(&models.Ticket{
		FestivalID: jazz.ID, UserID: fx.User.ID, TicketTypeID: fx.Standard.ID,
		FinalPrice: decimal.NewFromInt(40), GeneratedCode: "AAA-BBB-STA",
	}).Error)

	titles := func(search models.FestivalSearch) []string {
		t.Helper()
		result, err := svc.Festivals.List(ctx, search)
		require.NoError(t, err)
		out := make([]string, 0, len(result.Items))
		for _, f := range result.Items {
			out = append(out, f.Title)
		}
		return out
	}

	assert.Equal(t, []string{"Sarajevo Jazz Fest"}, titles(models.FestivalSearch{Title: "jazz"}))
	assert.Equal(t, []string{"Bridge Days"}, titles(models.FestivalSearch{CityName: "most"}))
	assert.Equal(t, []string{"Sarajevo Jazz Fest"}, titles(models.FestivalSearch{AttendedByUser: &fx.User.ID}))
	assert.Empty(t, titles(models.FestivalSearch{AttendedByUser: &fx.Admin.ID}))

	from := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"Winter Fest"}, titles(models.FestivalSearch{StartDateFrom: &from}))
	assert.Equal(t, []string{"Sarajevo Jazz Fest", "Bridge Days"}, titles(models.FestivalSearch{StartDateTo: &from}))
}

func TestAssetsLogoAndWithoutAssets(t *testing.T) {
	db, fx, svc, _ := setup(t)
	ctx := context.Background()
	f := testinfra.CreateFestival(t, db, fx, "Jazz Fest", "40")

	_, err := svc.Assets.Insert(ctx, models.AssetUpsertRequest{
		FileName: "program.pdf", ContentType: "application/pdf", Base64Content: "cGRm", FestivalID: f.ID,
	})
	require.NoError(t, err)
	asset, err := svc.Assets.Insert(ctx, models.AssetUpsertRequest{
		FileName: "logo.png", ContentType: "image/png", Base64Content: "aW1n", FestivalID: f.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Jazz Fest", asset.FestivalTitle)

	_, err = svc.Assets.Insert(ctx, models.AssetUpsertRequest{
		FileName: "x.png", ContentType: "image/png", Base64Content: "aW1n", FestivalID: 999,
	})
	assert.True(t, crud.IsValidation(err))

	full, err := svc.Festivals.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Len(t, full.Assets, 2)
	assert.Equal(t, "aW1n", full.Logo)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc.SetupRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/festival/without-assets", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var page crud.PagedResult[models.FestivalResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Empty(t, page.Items[0].Assets)
	assert.Empty(t, page.Items[0].Logo)

	// Deleting the festival removes its assets.
	require.NoError(t, svc.Festivals.Delete(ctx, f.ID))
	var count int64
	require.NoError(t, db.Model(&models.Asset{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRecommendEndpoint(t *testing.T) {
	db := testinfra.NewDB(t)
	fx := testinfra.Seed(t, db)
	a := testinfra.CreateFestival(t, db, fx, "A", "10")
	b := testinfra.CreateFestival(t, db, fx, "B", "10")

	svc := NewService(db, Options{Recommender: stubRecommender{ids: []uint{b.ID, a.ID}}})
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc.SetupRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/festival/recommend/1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var items []models.FestivalResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "B", items[0].Title)
	assert.Equal(t, "A", items[1].Title)

	svc = NewService(db, Options{Recommender: stubRecommender{err: crud.ErrNotFound}})
	r = gin.New()
	svc.SetupRoutes(r)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/festival/recommend/42", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// An engine that has not built its snapshot yet answers with nothing.
	svc = NewService(db, Options{Recommender: recommend.New(db)})
	r = gin.New()
	svc.SetupRoutes(r)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/festival/recommend/1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) InvalidateReport(ctx context.Context) error {
	c.calls++
	return nil
}

func TestFestivalUpdateAndDeleteInvalidateReport(t *testing.T) {
	db := testinfra.NewDB(t)
	fx := testinfra.Seed(t, db)
	reports := &countingInvalidator{}
	svc := NewService(db, Options{Reports: reports})
	ctx := context.Background()

	resp, err := svc.Festivals.Insert(ctx, request(fx, "Test Fest"))
	require.NoError(t, err)
	assert.Zero(t, reports.calls, "a new festival has no sales yet")

	_, err = svc.Festivals.Update(ctx, resp.ID, request(fx, "Renamed Fest"))
	require.NoError(t, err)
	assert.Equal(t, 1, reports.calls)

	require.NoError(t, svc.Festivals.Delete(ctx, resp.ID))
	assert.Equal(t, 2, reports.calls)
}

func TestLogo(t *testing.T) {
	assert.Empty(t, Logo(nil))
	assert.Equal(t, "a", Logo([]models.Asset{{ContentType: "text/plain", Base64Content: "a"}}))
	assert.Equal(t, "b", Logo([]models.Asset{
		{ContentType: "text/plain", Base64Content: "a"},
		{ContentType: "image/jpeg", Base64Content: "b"},
	}))
}
