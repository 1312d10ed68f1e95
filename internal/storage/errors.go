package storage

import (
	"errors"

	"github.com/minio/minio-go/v7"
)

// IsNoSuchKey 判断错误是否表示对象不存在。
func IsNoSuchKey(err error) bool {
	if err == nil {
		return false
	}
	var respErr minio.ErrorResponse
	if errors.As(err, &respErr) {
		return respErr.Code == "NoSuchKey" || respErr.Code == "NoSuchObject"
	}
	return false
}
