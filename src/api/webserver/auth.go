package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/productporter/productporter/src/api/types"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Auth struct {
	db     *gorm.DB
	secret []byte
}

func NewAuth(db *gorm.DB, secret []byte) Auth {
	return Auth{db: db, secret: secret}
}

func (a Auth) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required,min=2,max=64"`
		Password string `json:"password" binding:"required,min=8"`
		Nickname string `json:"nickname"`
		Email    string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}

	u := types.User{
		Username: req.Username,
		Nickname: req.Nickname,
		Email:    req.Email,
		Password: string(hash),
	}
	if err := a.db.Create(&u).Error; err != nil {
		// The unique index on username is the only plausible failure here.
		c.JSON(http.StatusConflict, gin.H{"status": "error", "error": "username taken"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "username": u.Username})
}

func (a Auth) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	var u types.User
	if err := a.db.First(&u, "username = ?", req.Username).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "bad credentials"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "bad credentials"})
		return
	}

	token, err := issueJWT(u.Username, a.secret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "token": token})
}
