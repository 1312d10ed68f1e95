package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypePreviewCapture = "preview:capture"
	TypeStorageSweep   = "storage:sweep"
)

// PreviewCapturePayload 描述生成简历预览图所需的最小信息。
type PreviewCapturePayload struct {
	UID           string `json:"uid"`
	ResumeID      string `json:"resume_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewPreviewCaptureTask 构造一个简历预览图生成任务。
func NewPreviewCaptureTask(uid, resumeID, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(PreviewCapturePayload{
		UID:           uid,
		ResumeID:      resumeID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePreviewCapture, payload), nil
}

// NewStorageSweepTask 构造一个孤儿对象清理任务；无需负载。
func NewStorageSweepTask() *asynq.Task {
	return asynq.NewTask(TypeStorageSweep, nil)
}
