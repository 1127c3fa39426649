// Package server は、静的ファイルを配信するHTTPサーバーを管理します。
//
// このパッケージは、HTTPサーバーの起動、ルーティング、
// 静的ファイルの配信、固定レスポンスヘッダーの付与を担当します。
//
// 責務:
//   - TCPリスナーのバインドとHTTPサーバーの管理
//   - ドキュメントルート配下のファイル配信
//   - "/" からデフォルトドキュメントへの書き換え（GETのみ）
//   - 全レスポンスへのCORS/キャッシュ制御ヘッダーの付与
//   - アクセスログの出力
//
// 仕様:
//   - HTTPエンジンにはgin-gonic/ginを使用
//   - ファイルシステムは読み取り専用で扱う
//   - GET/HEAD以外のメソッドは501を返す
//   - グレースフルシャットダウンに対応
//   - 複数クライアントの同時接続をサポート
package server
