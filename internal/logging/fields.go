package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RefreshFields 描述一次回源刷新，refresh 取值 natural/forced。
func RefreshFields(packageName, cacheKey string, forced bool) logrus.Fields {
	refresh := "natural"
	if forced {
		refresh = "forced"
	}
	return logrus.Fields{
		"package":   packageName,
		"cache_key": cacheKey,
		"refresh":   refresh,
	}
}

// RequestFields 提供请求 ID 与路由信息，供 HTTP 层日志复用。
func RequestFields(requestID, route string, status int) logrus.Fields {
	return logrus.Fields{
		"request_id": requestID,
		"route":      route,
		"status":     status,
	}
}
