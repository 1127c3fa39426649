package server

import (
	"html/template"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

const listingTemplateName = "listing"

// listingTemplate はディレクトリ一覧のHTML
var listingTemplate = template.Must(template.New(listingTemplateName).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Directory listing for {{.Path}}</title>
</head>
<body>
<h1>Directory listing for {{.Path}}</h1>
<hr>
<ul>
{{range .Entries}}<li><a href="{{.Href}}">{{.Name}}</a></li>
{{end}}</ul>
<hr>
</body>
</html>
`))

type listingEntry struct {
	Name string
	Href string
}

type listingPage struct {
	Path    string
	Entries []listingEntry
}

// serveListing はインデックスの無いディレクトリの一覧を返す
func (h *staticHandler) serveListing(c *gin.Context, name string, dir http.File) {
	infos, err := dir.Readdir(-1)
	if err != nil {
		h.fail(c, name, err)
		return
	}

	// 大文字小文字を区別せずに名前順
	sort.Slice(infos, func(i, j int) bool {
		return strings.ToLower(infos[i].Name()) < strings.ToLower(infos[j].Name())
	})

	page := listingPage{Path: name, Entries: make([]listingEntry, 0, len(infos))}
	for _, info := range infos {
		display := info.Name()
		// "./" を付けて "a:b" のような名前がスキームと解釈されないようにする
		href := "./" + url.PathEscape(info.Name())
		if info.IsDir() {
			display += "/"
			href += "/"
		}
		page.Entries = append(page.Entries, listingEntry{Name: display, Href: href})
	}

	c.HTML(http.StatusOK, listingTemplateName, page)
}
