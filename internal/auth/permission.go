package auth

import (
	"net/http"

	"labdb.org/labgate/internal/directory"
)

// Permission はリクエストに要求される粗粒度のアクセスレベル。
type Permission int

const (
	// PermissionRead は読み取りアクセス。
	PermissionRead Permission = iota
	// PermissionWrite は書き込みアクセス。
	PermissionWrite
	// PermissionAdmin は管理者アクセス。メソッドからの導出では
	// 使用されず、将来の拡張のために予約されている。
	PermissionAdmin
)

// PermissionForMethod はHTTPメソッドから要求権限を導出する。
// GET/HEAD/OPTIONS は読み取り、それ以外は全て書き込みとみなす。
func PermissionForMethod(method string) Permission {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return PermissionRead
	default:
		return PermissionWrite
	}
}

// Authorize はユーザーレコードが要求権限を持つかを判定する。
// レコードが存在しない、またはフラグがNULLの場合は常に拒否する。
// エラーは返さない。データの欠落は全て拒否として扱う。
func Authorize(u *directory.User, p Permission) bool {
	if u == nil {
		return false
	}
	switch p {
	case PermissionRead:
		return u.AuthRead.Valid && u.AuthRead.Bool
	case PermissionWrite:
		return u.AuthWrite.Valid && u.AuthWrite.Bool
	case PermissionAdmin:
		return u.AuthAdmin.Valid && u.AuthAdmin.Bool
	default:
		return false
	}
}
