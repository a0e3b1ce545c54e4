package webserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/productporter/productporter/src/api/translate"
	"github.com/productporter/productporter/src/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var testSecret = []byte("test-secret")

// fakeLive doubles as the liveness oracle and the heartbeat sink: a
// request through the middleware marks its user online, exactly like the
// Redis-backed tracker would.
type fakeLive struct {
	online map[string]bool
}

func (f *fakeLive) IsOnline(_ context.Context, username string) (bool, error) {
	return f.online[username], nil
}

func (f *fakeLive) Touch(_ context.Context, username string) error {
	f.online[username] = true
	return nil
}

type webFixture struct {
	db     *gorm.DB
	router *gin.Engine
	live   *fakeLive
}

func newWebFixture(t *testing.T) *webFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&types.User{}, &types.Product{}, &types.Tag{}, &types.FieldEditor{}))

	live := &fakeLive{online: map[string]bool{}}
	svc := translate.NewService(db, live)

	g := gin.New()
	authH := NewAuth(db, testSecret)
	trH := NewTranslate(db, svc)
	postsH := NewPosts(db, nil, svc, nil)

	g.POST("/auth/register", authH.Register)
	g.POST("/auth/login", authH.Login)

	authed := g.Group("/")
	authed.Use(OptionalAuth(db, live, testSecret))
	{
		authed.GET("/translate", trH.Acquire)
		authed.PUT("/translate", trH.Commit)
		authed.POST("/translate", trH.Commit)
		authed.GET("/lock", ModeratorRequired(), trH.Lock)
		authed.GET("/posts", postsH.List)
		authed.GET("/posts/:postid", postsH.Detail)
		authed.GET("/tags", postsH.TagsIndex)
		authed.GET("/tags/:name", postsH.ByTag)
		authed.GET("/briefing/:day", ModeratorRequired(), postsH.Briefing)
	}

	return &webFixture{db: db, router: g, live: live}
}

func (f *webFixture) addUser(t *testing.T, username string, moderator bool) *types.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	u := types.User{Username: username, Password: string(hash), Moderator: moderator}
	require.NoError(t, f.db.Create(&u).Error)
	return &u
}

func (f *webFixture) addProduct(t *testing.T, postid string) *types.Product {
	t.Helper()
	p := types.Product{PostID: postid, Name: "p", Tagline: "orig", Day: "2026-08-01"}
	require.NoError(t, f.db.Create(&p).Error)
	return &p
}

func (f *webFixture) token(t *testing.T, username string) string {
	t.Helper()
	tok, err := issueJWT(username, testSecret)
	require.NoError(t, err)
	return tok
}

func (f *webFixture) do(t *testing.T, method, target, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	out := map[string]interface{}{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestRegisterAndLogin(t *testing.T) {
	f := newWebFixture(t)

	w, _ := f.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"username": "alice", "password": "password123", "nickname": "Alice",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Duplicate username is rejected.
	w, _ = f.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"username": "alice", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, body := f.do(t, http.MethodPost, "/auth/login", "", gin.H{
		"username": "alice", "password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, body["token"])

	w, _ = f.do(t, http.MethodPost, "/auth/login", "", gin.H{
		"username": "alice", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAcquireRequiresSignIn(t *testing.T) {
	f := newWebFixture(t)
	f.addProduct(t, "42")

	w, body := f.do(t, http.MethodGet, "/translate?postid=42&field=ctagline", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Please sign in first", body["error"])
}

func TestAcquireSuccess(t *testing.T) {
	f := newWebFixture(t)
	f.addUser(t, "alice", false)
	f.addProduct(t, "42")

	w, body := f.do(t, http.MethodGet, "/translate?postid=42&field=ctagline", f.token(t, "alice"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "42", body["postid"])
	assert.Equal(t, "ctagline", body["field"])
	assert.Equal(t, "", body["value"])
	assert.Equal(t, "", body["tags"])
}

func TestAcquireConflictReportsHolder(t *testing.T) {
	f := newWebFixture(t)
	f.addUser(t, "alice", false)
	f.addUser(t, "bob", false)
	f.addProduct(t, "42")

	w, _ := f.do(t, http.MethodGet, "/translate?postid=42&field=ctagline", f.token(t, "alice"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	// alice's request marked her online, so bob gets the conflict.
	w, body := f.do(t, http.MethodGet, "/translate?postid=42&field=ctagline", f.token(t, "bob"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ctagline is editing by alice", body["error"])
}

func TestAcquireStaleClaimTakeover(t *testing.T) {
	f := newWebFixture(t)
	f.addUser(t, "alice", false)
	f.addUser(t, "bob", false)
	f.addProduct(t, "42")

	w, _ := f.do(t, http.MethodGet, "/translate?postid=42&field=ctagline", f.token(t, "alice"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	f.live.online["alice"] = false
	w, _ = f.do(t, http.MethodGet, "/translate?postid=42&field=ctagline", f.token(t, "bob"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAcquireLockedField(t *testing.T) {
	f := newWebFixture(t)
	f.addUser(t, "alice", false)
	carol := f.addUser(t, "carol", true)
	p := f.addProduct(t, "42")
	require.NoError(t, f.db.Model(p).Updates(map[string]interface{}{
		"c_tagline_locked":       true,
		"c_tagline_locked_by_id": carol.ID,
	}).Error)

	w, body := f.do(t, http.MethodGet, "/translate?postid=42&field=ctagline", f.token(t, "alice"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, body["error"], "ctagline is locked")
}

func TestAcquireUnknownPostAndField(t *testing.T) {
	f := newWebFixture(t)
	f.addUser(t, "alice", false)

	w, _ := f.do(t, http.MethodGet, "/translate?postid=nope&field=ctagline", f.token(t, "alice"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = f.do(t, http.MethodGet, "/translate?postid=42&field=bogus", f.token(t, "alice"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCommitInvalidJSON(t *testing.T) {
	f := newWebFixture(t)
	f.addUser(t, "alice", false)

	w, body := f.do(t, http.MethodPut, "/translate", f.token(t, "alice"), "{not json")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "invalid json data", body["message"])
}

func TestCommitSuccess(t *testing.T) {
	f := newWebFixture(t)
	f.addUser(t, "alice", false)
	f.addProduct(t, "42")

	w, body := f.do(t, http.MethodPut, "/translate", f.token(t, "alice"), gin.H{
		"postid": "42",
		"field":  "ctagline",
		"value":  "Hello",
		"tags":   []string{"ai", "tools"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Hello", body["value"])
	assert.Equal(t, []interface{}{"ai", "tools"}, body["tags"])

	contributors := body["contributors"].(map[string]interface{})
	editors := contributors["editors"].([]interface{})
	require.Len(t, editors, 1)
	assert.Equal(t, "alice", editors[0].(map[string]interface{})["username"])
	assert.Equal(t, "alice", editors[0].(map[string]interface{})["display"])
	assert.Equal(t, "edit by @alice", body["contributors_text"])
}

func TestCommitCanceledOmitsValue(t *testing.T) {
	f := newWebFixture(t)
	f.addUser(t, "alice", false)
	f.addProduct(t, "42")

	w, body := f.do(t, http.MethodPost, "/translate", f.token(t, "alice"), gin.H{
		"postid":   "42",
		"field":    "ctagline",
		"canceled": true,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", body["status"])
	assert.NotContains(t, body, "value")
	assert.NotContains(t, body, "contributors")
}

func TestLockEndpoint(t *testing.T) {
	f := newWebFixture(t)
	f.addUser(t, "alice", false)
	f.addUser(t, "carol", true)
	f.addProduct(t, "42")

	// Anonymous and non-moderator callers are gated.
	w, _ := f.do(t, http.MethodGet, "/lock?postid=42&op=lock&field=ctagline", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = f.do(t, http.MethodGet, "/lock?postid=42&op=lock&field=ctagline", f.token(t, "alice"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body := f.do(t, http.MethodGet, "/lock?postid=42&op=lock&field=ctagline", f.token(t, "carol"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	contributors := body["contributors"].(map[string]interface{})
	lockedBy := contributors["locked_by"].(map[string]interface{})
	assert.Equal(t, "carol", lockedBy["username"])
	assert.Contains(t, body["contributors_text"], "locked by @carol")

	// Locked fields reject acquire attempts.
	w, _ = f.do(t, http.MethodGet, "/translate?postid=42&field=ctagline", f.token(t, "alice"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Unlock reopens the field.
	w, _ = f.do(t, http.MethodGet, "/lock?postid=42&op=unlock&field=ctagline", f.token(t, "carol"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = f.do(t, http.MethodGet, "/translate?postid=42&field=ctagline", f.token(t, "alice"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPostsListingAndDetail(t *testing.T) {
	f := newWebFixture(t)
	f.addUser(t, "alice", false)
	f.addProduct(t, "42")
	f.addProduct(t, "43")

	w, body := f.do(t, http.MethodGet, "/posts?day=2026-08-01", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, body["count"])

	// Commit a translation, then check the detail view reflects it.
	_, _ = f.do(t, http.MethodPut, "/translate", f.token(t, "alice"), gin.H{
		"postid": "42", "field": "ctagline", "value": "Bonjour", "tags": []string{"ai"},
	})

	w, body = f.do(t, http.MethodGet, "/posts/42", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	post := body["post"].(map[string]interface{})
	assert.Equal(t, "Bonjour", post["ctagline"])
	assert.Equal(t, []interface{}{"ai"}, post["tags"])

	w, _ = f.do(t, http.MethodGet, "/posts/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = f.do(t, http.MethodGet, "/tags", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"ai"}, body["tags"])

	w, body = f.do(t, http.MethodGet, "/tags/ai", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["count"])
}

func TestBriefing(t *testing.T) {
	f := newWebFixture(t)
	f.addUser(t, "alice", false)
	f.addUser(t, "carol", true)
	f.addProduct(t, "42")
	f.addProduct(t, "43")

	_, _ = f.do(t, http.MethodPut, "/translate", f.token(t, "alice"), gin.H{
		"postid": "42", "field": "ctagline", "value": "Bonjour", "tags": []string{},
	})
	_, _ = f.do(t, http.MethodGet, "/lock?postid=42&op=lock&field=ctagline", f.token(t, "carol"), nil)

	w, body := f.do(t, http.MethodGet, "/briefing/2026-08-01", f.token(t, "carol"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"42"}, body["finalized"])
	editors := body["editors"].([]interface{})
	require.Len(t, editors, 1)
	assert.Equal(t, "alice", editors[0].(map[string]interface{})["username"])
}
