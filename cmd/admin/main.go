package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"resumecraft/internal/config"
	"resumecraft/internal/database"
	"resumecraft/internal/docstore"
	"resumecraft/internal/storage"
)

// 运维脚手架：绕过 HTTP 层直接向目录写入模板。
// 适合初始化环境或批量导入版式图片。
func main() {
	var (
		title     = flag.String("title", "", "模板标题（必填）")
		imagePath = flag.String("image", "", "版式图片路径（必填）")
		tags      = flag.String("tags", "", "逗号分隔的标签（可选）")
	)
	flag.Parse()

	t := strings.TrimSpace(*title)
	if t == "" {
		log.Fatal("missing required flag: --title")
	}
	img := strings.TrimSpace(*imagePath)
	if img == "" {
		log.Fatal("missing required flag: --image")
	}

	cfg := config.MustLoad()
	ctx := context.Background()

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}

	file, err := os.Open(img)
	if err != nil {
		log.Fatalf("open image: %v", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		log.Fatalf("stat image: %v", err)
	}

	ext := strings.ToLower(filepath.Ext(img))
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	objectKey := fmt.Sprintf("template-images/%s%s", uuid.NewString(), ext)
	imageURL, err := storageClient.UploadFile(ctx, objectKey, file, info.Size(), contentType, func(transferred, total int64) {
		fmt.Printf("\r上传中 %d/%d 字节", transferred, total)
	})
	if err != nil {
		log.Fatalf("upload image: %v", err)
	}
	fmt.Println()

	store := docstore.NewStore(db, nil)

	count, err := store.CountTemplates(ctx)
	if err != nil {
		log.Fatalf("count templates: %v", err)
	}

	tpl := &database.Template{
		ID:       uuid.NewString(),
		Title:    t,
		Name:     fmt.Sprintf("Template%d", count+1),
		ImageURL: imageURL,
	}
	if trimmed := splitTags(*tags); len(trimmed) > 0 {
		tpl.Tags = docstore.EncodeStrings(trimmed)
	}

	if err := store.SetTemplate(ctx, tpl); err != nil {
		log.Fatalf("create template: %v", err)
	}

	fmt.Printf("已创建模板：\n")
	fmt.Printf("ID:   %s\n", tpl.ID)
	fmt.Printf("族名: %s\n", tpl.Name)
	fmt.Printf("图片: %s\n", imageURL)
}

func splitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}
