package store

import (
	"net/url"
	"strings"
)

// Имена бэкендов.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Select выбирает активный бэкенд по конфигурации удалённого сервиса.
// Удалённый бэкенд выбирается тогда и только тогда, когда remoteURL
// задан и имеет форму абсолютного http(s)-URL с хостом. Проверка
// статическая, доступность сервиса не проверяется; выполняется один
// раз при старте, переключения в рантайме нет.
func Select(remoteURL string) string {
	if RemoteCapable(remoteURL) {
		return BackendRemote
	}
	return BackendLocal
}

// RemoteCapable сообщает, пригоден ли URL для удалённого бэкенда.
func RemoteCapable(remoteURL string) bool {
	remoteURL = strings.TrimSpace(remoteURL)
	if remoteURL == "" {
		return false
	}

	u, err := url.ParseRequestURI(remoteURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
