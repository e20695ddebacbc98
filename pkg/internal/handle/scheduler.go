package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/docvault/pkg/internal/apperr"
	"github.com/yeisme/docvault/pkg/middleware"
)

// SchedulerJobs 返回所有定时任务信息.
//
//	@Summary	定时任务列表
//	@Tags		调度器
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Router		/api/scheduler/jobs [get]
func SchedulerJobs(c *gin.Context) {
	sched := middleware.GetScheduler(c)
	if sched == nil {
		Fail(c, apperr.New(apperr.KindNotFound, "Scheduler not running"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": sched.GetJobInfos(), "waiting": sched.JobsWaitingInQueue()})
}

// SchedulerRunJob 立即执行一次指定任务.
//
//	@Summary	立即执行任务
//	@Tags		调度器
//	@Produce	json
//	@Param		name	path		string	true	"任务名称"
//	@Success	202		{object}	map[string]string
//	@Failure	404		{object}	types.ErrorResponse
//	@Router		/api/scheduler/jobs/{name}/run [post]
func SchedulerRunJob(c *gin.Context) {
	sched := middleware.GetScheduler(c)
	if sched == nil {
		Fail(c, apperr.New(apperr.KindNotFound, "Scheduler not running"))
		return
	}

	if err := sched.RunNow(c.Param("name")); err != nil {
		Fail(c, apperr.Wrap(apperr.KindNotFound, "Job not found", err))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "job triggered"})
}
