package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/lrn-ops/duty-manager/backend/internal/config"
	"github.com/lrn-ops/duty-manager/backend/internal/domain"
	"github.com/lrn-ops/duty-manager/backend/internal/repository"
	"github.com/lrn-ops/duty-manager/backend/internal/service"
)

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  *repository.Repository
	service     *service.Service
	translator  ut.Translator
	mailChannel *amqp.Channel
	redisClient *redis.Client

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, svc *service.Service, mailCh *amqp.Channel, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		service:     svc,
		translator:  trans,
		mailChannel: mailCh,
		redisClient: rdb,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Route("/reset-password", func(r chi.Router) {
			r.Post("/require", h.RequireResetPassword)
			r.Post("/confirm", h.ConfirmResetPassword)
		})
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		// 用户的每一次操作都顺带触发一次过期检查表清理（带节流）
		r.Use(h.autoSweep)

		r.Route("/my-info", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RoleSuperAdmin})).Post("/", h.CreateUser)
			r.Get("/", h.GetAllUserInfo) // 排班页面需要展示所有经理
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.userInfo)
				r.Get("/", h.GetUserInfo)
				r.With(h.RequiredRole([]domain.Role{domain.RoleSuperAdmin}), h.preventOperateInitialAdmin).Patch("/", h.UpdateUser)
				r.With(h.RequiredRole([]domain.Role{domain.RoleSuperAdmin}), h.preventOperateInitialAdmin).Delete("/", h.DeleteUser)
			})
		})

		r.Get("/checklist-items", h.GetChecklistItems)

		r.Route("/duty-schedules", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetDutySchedules)
			r.With(h.RequiredRole([]domain.Role{domain.RoleSuperAdmin})).Post("/", h.CreateDutySchedule)
			r.With(h.RequiredRole([]domain.Role{domain.RoleSuperAdmin})).Post("/batch", h.BatchCreateDutySchedules)
			r.With(h.RequiredRole([]domain.Role{domain.RoleSuperAdmin})).Delete("/batch", h.BatchDeleteDutySchedules)
			r.With(h.RequiredRole([]domain.Role{domain.RoleSuperAdmin})).Delete("/{id}", h.DeleteDutySchedule)
		})

		r.Route("/checklist", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Route("/{date}", func(r chi.Router) {
				r.Use(h.dutyDate)
				r.Get("/", h.GetChecklist)
				r.Get("/permission", h.GetChecklistPermission)
			})
			r.Route("/sessions/{id}", func(r chi.Router) {
				r.Use(h.checklistSession)
				r.Put("/entries/{itemID}", h.UpsertChecklistEntry)
				r.Post("/photos/{itemID}", h.UploadChecklistPhoto)
				r.Post("/finalize", h.FinalizeChecklist)
				r.Post("/reopen", h.ReopenChecklist)
			})
			r.Route("/photos/{photoID}", func(r chi.Router) {
				r.Get("/", h.ServeChecklistPhoto)
				r.Delete("/", h.DeleteChecklistPhoto)
			})
		})

		r.Route("/calendar", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetCalendar)
			r.Post("/", h.SaveCalendarEntry)
			r.Post("/batch", h.BatchSaveCalendar)
			r.Delete("/batch", h.BatchDeleteCalendar)
			r.Delete("/{id}", h.DeleteCalendarEntry)
		})

		r.With(h.RequiredRole([]domain.Role{domain.RoleSuperAdmin})).Post("/sweep", h.RunSweep)
	})
}
