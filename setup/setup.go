// Package setup seeds a fresh store: the first admin account and every
// reference collection the storefront reads.
package setup

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"nongxian/apperr"
	"nongxian/config"
	"nongxian/db"
	"nongxian/defaults"
	"nongxian/models"
	"nongxian/permissions"
	"nongxian/store"
	"nongxian/utils"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// TotalSteps is the number of steps InitializeAll runs.
const TotalSteps = 8

// ErrInitialized is returned when the store already holds categories or an
// admin account.
const ErrInitialized = "系統已經初始化"

const minPasswordLength = 6

// AdminAccount is the first back-office login. UID is generated when empty.
type AdminAccount struct {
	UID         string `json:"uid,omitempty"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type Progress struct {
	Step     int    `json:"step"`
	Total    int    `json:"total"`
	Progress int    `json:"progress"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// Status reports what CheckSystemInitialized found.
type Status struct {
	Initialized    bool `json:"initialized"`
	Categories     int  `json:"categories"`
	Products       int  `json:"products"`
	PaymentMethods int  `json:"paymentMethods"`
}

type Initializer struct {
	repos    *db.Repos
	mail     config.MailConfig
	now      func() time.Time
	upgrader websocket.Upgrader
}

func New(repos *db.Repos, mail config.MailConfig) *Initializer {
	return &Initializer{repos: repos, mail: mail, now: time.Now}
}

// WithOrigin restricts the progress socket to browsers on the storefront
// origin (scheme://host[:port]). Without it only same-host pages may connect.
func (in *Initializer) WithOrigin(storeURL string) *Initializer {
	u, err := url.Parse(storeURL)
	if err != nil || u.Host == "" {
		log.Printf("setup: ignoring storefront origin %q", storeURL)
		return in
	}
	allowed := u.Scheme + "://" + u.Host
	in.upgrader.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || strings.EqualFold(origin, allowed)
	}
	return in
}

// WithClock replaces the time source stamped on seeded records.
func (in *Initializer) WithClock(now func() time.Time) *Initializer {
	in.now = now
	return in
}

type step struct {
	title string
	run   func(ctx context.Context, now time.Time) error
}

func (in *Initializer) steps(admin AdminAccount) []step {
	return []step{
		{"建立管理員帳號", func(ctx context.Context, now time.Time) error { return in.createAdmin(ctx, admin, now) }},
		{"建立商品分類", func(ctx context.Context, now time.Time) error {
			return seed(ctx, in.repos.Categories, defaults.Categories(now), func(c models.Category) string { return c.ID })
		}},
		{"建立商品資料", func(ctx context.Context, now time.Time) error {
			return seed(ctx, in.repos.Products, defaults.Products(now), func(p models.Product) string { return p.ID })
		}},
		{"建立優惠券", func(ctx context.Context, now time.Time) error {
			return seed(ctx, in.repos.Coupons, defaults.Coupons(now), func(c models.Coupon) string { return c.Code })
		}},
		{"建立付款方式", func(ctx context.Context, now time.Time) error {
			return seed(ctx, in.repos.PaymentMethods, defaults.PaymentMethods(now), func(p models.PaymentMethod) string { return p.ID })
		}},
		{"建立郵件設定", func(ctx context.Context, now time.Time) error {
			s := defaults.EmailSettings(now, in.mail.RelayURL, in.mail.FromEmail, in.mail.FromName, in.mail.AdminEmail)
			return in.repos.EmailSettings.AddWithID(ctx, s.ID, s)
		}},
		{"建立郵件範本", func(ctx context.Context, now time.Time) error {
			return seed(ctx, in.repos.EmailTemplates, defaults.EmailTemplates(now), func(t models.EmailTemplate) string { return t.ID })
		}},
		{"建立物流設定", func(ctx context.Context, now time.Time) error {
			s := defaults.Logistics(now)
			return in.repos.Logistics.AddWithID(ctx, s.ID, s)
		}},
	}
}

func seed[T any](ctx context.Context, repo store.Repository[T], docs []T, idOf func(T) string) error {
	for _, d := range docs {
		id := idOf(d)
		if err := repo.AddWithID(ctx, id, d); err != nil {
			return apperr.New(apperr.KindOf(err), fmt.Sprintf("%s（%s）", apperr.MessageOf(err, "資料寫入失敗"), id), err)
		}
	}
	return nil
}

func (in *Initializer) createAdmin(ctx context.Context, a AdminAccount, now time.Time) error {
	email := strings.ToLower(strings.TrimSpace(a.Email))
	if !utils.IsValidEmail(email) {
		return apperr.ValidationError("管理員 Email 格式錯誤")
	}
	if len(a.Password) < minPasswordLength {
		return apperr.ValidationError(fmt.Sprintf("密碼至少需要 %d 個字元", minPasswordLength))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.DefaultCost)
	if err != nil {
		return apperr.InternalError("密碼加密失敗", err)
	}
	uid := a.UID
	if uid == "" {
		uid = "admin-" + utils.GetUUID()
	}
	name := strings.TrimSpace(a.DisplayName)
	if name == "" {
		name = "系統管理員"
	}
	return in.repos.Admins.AddWithID(ctx, uid, models.AdminUser{
		UID:          uid,
		Email:        email,
		DisplayName:  name,
		Role:         models.RoleAdmin,
		Permissions:  append([]string(nil), permissions.All...),
		IsActive:     true,
		PasswordHash: string(hash),
		CreatedAt:    now,
	})
}

// InitializeAll runs the eight seed steps in order, reporting each through
// progress. The first failing step is reported with status error and ends
// the run; earlier steps are not undone.
func (in *Initializer) InitializeAll(ctx context.Context, admin AdminAccount, progress func(Progress)) error {
	if progress == nil {
		progress = func(Progress) {}
	}
	existing, err := in.repos.Categories.GetAll(ctx, "", store.Asc, 1)
	if err != nil {
		return apperr.InternalError("無法讀取系統狀態", err)
	}
	admins, err := in.repos.Admins.GetAll(ctx, "", store.Asc, 1)
	if err != nil {
		return apperr.InternalError("無法讀取系統狀態", err)
	}
	if len(existing) > 0 || len(admins) > 0 {
		return apperr.ConflictError(ErrInitialized, nil)
	}

	now := in.now()
	for i, st := range in.steps(admin) {
		n := i + 1
		progress(Progress{Step: n, Total: TotalSteps, Progress: i * 100 / TotalSteps, Status: StatusProcessing, Message: st.title + "中..."})

		if err := st.run(ctx, now); err != nil {
			msg := fmt.Sprintf("步驟 %d（%s）失敗：%s", n, st.title, apperr.MessageOf(err, "未知錯誤"))
			log.Printf("setup step %d failed: %v", n, err)
			progress(Progress{Step: n, Total: TotalSteps, Progress: i * 100 / TotalSteps, Status: StatusError, Message: msg})
			if apperr.KindOf(err) == apperr.Validation {
				return apperr.ValidationError(msg)
			}
			// the cause is logged above; the returned text is shown as is
			return apperr.InternalError(msg, nil)
		}
		progress(Progress{Step: n, Total: TotalSteps, Progress: n * 100 / TotalSteps, Status: StatusCompleted, Message: st.title + "完成"})
	}
	log.Printf("setup: system initialized")
	return nil
}

// CheckSystemInitialized is true only when categories, products and payment
// methods all hold at least one record.
func (in *Initializer) CheckSystemInitialized(ctx context.Context) (Status, error) {
	cats, err := in.repos.Categories.GetAll(ctx, "", store.Asc, 0)
	if err != nil {
		return Status{}, apperr.InternalError("無法讀取商品分類", err)
	}
	products, err := in.repos.Products.GetAll(ctx, "", store.Asc, 0)
	if err != nil {
		return Status{}, apperr.InternalError("無法讀取商品", err)
	}
	payments, err := in.repos.PaymentMethods.GetAll(ctx, "", store.Asc, 0)
	if err != nil {
		return Status{}, apperr.InternalError("無法讀取付款方式", err)
	}
	s := Status{Categories: len(cats), Products: len(products), PaymentMethods: len(payments)}
	s.Initialized = s.Categories > 0 && s.Products > 0 && s.PaymentMethods > 0
	return s, nil
}
