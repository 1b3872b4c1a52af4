package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/habitforge/internal/service"
)

type pushPayload struct {
	Changes []service.SyncChange `json:"changes"`
}

type resolvePayload struct {
	Resolution string `json:"resolution"` // accept_server/accept_client/accept_merged
}

// PullChanges 返回 since 水位之后的实体增量；缺省 since 表示全量重同步
func (a *API) PullChanges(c *gin.Context) {
	since, err := parseTimeQuery(c, "since")
	if err != nil {
		respondError(c, http.StatusBadRequest, "since 参数需要 RFC3339 时间格式")
		return
	}

	result, err := a.sync.Pull(currentUserID(c), since)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "拉取增量失败")
		return
	}

	c.JSON(http.StatusOK, result)
}

// PushChanges 按序应用客户端变更批次
func (a *API) PushChanges(c *gin.Context) {
	var payload pushPayload
	if !bindJSON(c, &payload, "请求体格式错误") {
		return
	}

	result, err := a.sync.Push(currentUserID(c), payload.Changes)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "应用变更失败")
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListSyncConflicts 返回最近的冲突审计记录
func (a *API) ListSyncConflicts(c *gin.Context) {
	audits, err := a.sync.ListConflicts(currentUserID(c), parseIntQuery(c, "limit", 50))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取冲突记录失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"conflicts": audits})
}

// ResolveSyncConflict 记录用户对某条冲突的人工选择
func (a *API) ResolveSyncConflict(c *gin.Context) {
	var payload resolvePayload
	if !bindJSON(c, &payload, "请求体格式错误") {
		return
	}

	if err := a.sync.ResolveConflict(currentUserID(c), c.Param("recordId"), payload.Resolution); err != nil {
		respondError(c, http.StatusBadRequest, "无效的冲突裁决")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
