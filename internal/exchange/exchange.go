// Package exchange は /exchange の静的アセット配信を提供します。
// 認証とは無関係の素通しエンドポイントで、固定ディレクトリの
// index.html をそのまま返します。
package exchange

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

// Handler は配信ディレクトリの index.html を返すハンドラーを返します。
// ファイルが存在しない場合は404を返します。
func Handler(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := filepath.Join(dir, "index.html")

		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				c.Status(http.StatusNotFound)
				return
			}
			c.Status(http.StatusInternalServerError)
			return
		}

		// 拡張子ではなく内容からコンテンツタイプを判定する
		c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
	}
}
