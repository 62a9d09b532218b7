package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"
	"taskmanager/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const minCompressSize = 1024

type TaskAPI struct {
	httpSrv *http.Server
	svc     *service.Services
	cfg     *Config
}

func NewTaskAPI(svc *service.Services, cfg *Config) *TaskAPI {
	if svc == nil {
		return nil
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	api := TaskAPI{
		httpSrv: &http.Server{
			Addr:              cfg.ListenAddr(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		svc: svc,
		cfg: cfg,
	}

	api.configRoutes()

	return &api
}

func (api *TaskAPI) Start() error {
	if api.httpSrv == nil {
		return errors.ErrInternalServer
	}

	if api.httpSrv.Addr == "" {
		api.httpSrv.Addr = ":8080"
	}

	return api.httpSrv.ListenAndServe()
}

func (api *TaskAPI) Shutdown(ctx context.Context) error {
	return api.httpSrv.Shutdown(ctx)
}

func (api *TaskAPI) Handler() http.Handler {
	return api.httpSrv.Handler
}

func (api *TaskAPI) configRoutes() {
	router := gin.Default()
	router.HandleMethodNotAllowed = true

	router.Use(cors.New(corsConfig(api.cfg.CORSOrigins)))
	router.Use(GzipRequestDecompress(api.cfg.MaxUploadSize))
	router.Use(GzipResponseCompress(minCompressSize))

	router.NoMethod(func(ctx *gin.Context) {
		ctx.JSON(http.StatusMethodNotAllowed, gin.H{"error": "использован некорректный HTTP-метод"})
	})

	apiGroup := router.Group("/api")

	auth := apiGroup.Group("/auth")
	{
		auth.POST("/register", api.register)
		auth.POST("/login", api.login)
	}

	protected := apiGroup.Group("")
	protected.Use(AuthRequired(api.svc.Auth))

	protected.GET("/users", api.listUsers)

	tasks := protected.Group("/tasks")
	{
		tasks.GET("", api.getTasks)
		tasks.GET("/my-tasks", api.getMyTasks)
		tasks.GET("/:taskID", api.getTaskByID)
		tasks.POST("", api.createTask)
		tasks.PUT("/:taskID", api.updateTask)
		tasks.DELETE("/:taskID", api.deleteTask)
	}

	files := protected.Group("/files")
	{
		files.POST("/upload", api.uploadFile)
		files.GET("/:fileID", api.downloadFile)
		files.DELETE("/:fileID", api.deleteFile)
	}

	protected.GET("/dashboard/stats", api.dashboardStats)

	api.httpSrv.Handler = router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Encoding", "Accept-Encoding", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowCredentials = false
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// statusFor переводит вид ошибки в HTTP-статус.
func statusFor(err error) int {
	switch errors.Kind(err) {
	case errors.ErrNotFound:
		return http.StatusNotFound
	case errors.ErrUnauthorized:
		return http.StatusForbidden
	case errors.ErrInvalidInput:
		return http.StatusBadRequest
	case errors.ErrInvalidCredentials:
		return http.StatusUnauthorized
	case errors.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(ctx *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Println("[ERROR]", ctx.Request.Method, ctx.Request.URL.Path, err)
		ctx.JSON(status, gin.H{"error": errors.ErrInternalServer.Error()})
		return
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}

func mustPrincipal(ctx *gin.Context) (models.Principal, bool) {
	p, ok := principalFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
	}
	return p, ok
}

func (api *TaskAPI) register(ctx *gin.Context) {
	var req models.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "некорректные данные пользователя"})
		return
	}

	resp, err := api.svc.Auth.Register(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

func (api *TaskAPI) login(ctx *gin.Context) {
	var req models.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "некорректные данные запроса"})
		return
	}

	resp, err := api.svc.Auth.Login(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(tokenCookie, resp.Token, int(api.cfg.JWTTTL.Seconds()), "/", "", false, true)
	ctx.JSON(http.StatusOK, resp)
}

func (api *TaskAPI) listUsers(ctx *gin.Context) {
	users, err := api.svc.Auth.ListUsers(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, users)
}

func (api *TaskAPI) getTasks(ctx *gin.Context) {
	filter, err := service.ParseTaskFilter(
		ctx.Query("search"),
		ctx.Query("status"),
		ctx.Query("priority"),
		ctx.Query("assignee"),
	)
	if err != nil {
		respondError(ctx, err)
		return
	}

	var tasks []models.TaskResponse
	if filter.IsEmpty() {
		tasks, err = api.svc.Tasks.GetAll(ctx.Request.Context())
	} else {
		tasks, err = api.svc.Tasks.Search(ctx.Request.Context(), filter)
	}
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, tasks)
}

func (api *TaskAPI) getMyTasks(ctx *gin.Context) {
	p, ok := mustPrincipal(ctx)
	if !ok {
		return
	}
	tasks, err := api.svc.Tasks.GetMine(ctx.Request.Context(), p)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, tasks)
}

func (api *TaskAPI) getTaskByID(ctx *gin.Context) {
	task, err := api.svc.Tasks.GetByID(ctx.Request.Context(), ctx.Param("taskID"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, task)
}

func (api *TaskAPI) createTask(ctx *gin.Context) {
	p, ok := mustPrincipal(ctx)
	if !ok {
		return
	}
	var req models.TaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrBadRequest.Error()})
		return
	}

	task, err := api.svc.Tasks.Create(ctx.Request.Context(), req, p)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, task)
}

func (api *TaskAPI) updateTask(ctx *gin.Context) {
	p, ok := mustPrincipal(ctx)
	if !ok {
		return
	}
	var req models.TaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrBadRequest.Error()})
		return
	}

	task, err := api.svc.Tasks.Update(ctx.Request.Context(), ctx.Param("taskID"), req, p)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, task)
}

func (api *TaskAPI) deleteTask(ctx *gin.Context) {
	p, ok := mustPrincipal(ctx)
	if !ok {
		return
	}
	if err := api.svc.Tasks.Delete(ctx.Request.Context(), ctx.Param("taskID"), p); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (api *TaskAPI) uploadFile(ctx *gin.Context) {
	if api.cfg.MaxUploadSize > 0 {
		// запас на заголовки multipart
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, api.cfg.MaxUploadSize+1<<20)
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			respondError(ctx, errors.ErrFileTooLarge)
			return
		}
		respondError(ctx, errors.ErrEmptyFile)
		return
	}
	taskID := ctx.PostForm("taskId")
	if strings.TrimSpace(taskID) == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errors.ErrInvalidID.Error()})
		return
	}

	f, err := header.Open()
	if err != nil {
		respondError(ctx, errors.Store(err))
		return
	}
	defer f.Close()

	file, err := api.svc.Files.Upload(ctx.Request.Context(), service.Upload{
		TaskID:           taskID,
		OriginalFileName: header.Filename,
		ContentType:      header.Header.Get("Content-Type"),
		Size:             header.Size,
		Body:             f,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, file)
}

func (api *TaskAPI) downloadFile(ctx *gin.Context) {
	file, body, err := api.svc.Files.Open(ctx.Request.Context(), ctx.Param("fileID"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	defer body.Close()

	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(file.OriginalFileName)))
	ctx.Header("Content-Type", file.ContentType)
	ctx.Status(http.StatusOK)
	if _, err := io.Copy(ctx.Writer, body); err != nil {
		log.Println("[ERROR] Не удалось отдать файл", file.ID+":", err)
	}
}

func (api *TaskAPI) deleteFile(ctx *gin.Context) {
	if err := api.svc.Files.Delete(ctx.Request.Context(), ctx.Param("fileID")); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (api *TaskAPI) dashboardStats(ctx *gin.Context) {
	stats, err := api.svc.Dashboard.Stats(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, stats)
}
