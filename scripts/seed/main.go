package main

import (
	"fmt"
	"log"
	"time"

	"github.com/habitforge/internal/config"
	"github.com/habitforge/internal/db"
	"github.com/habitforge/internal/service"
	"golang.org/x/crypto/bcrypt"
)

// 测试数据生成器
func main() {
	// 初始化数据库
	cfg := config.Load()
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成测试数据...")

	// 创建测试用户
	userID := createTestUser()

	// 创建测试习惯与打卡记录
	createTestHabits(userID)

	fmt.Println("测试数据生成完成！")
	fmt.Println("用户: demo (密码: demo123)")
	fmt.Println("习惯: 晨跑、冥想、阅读")
}

// 创建测试用户
func createTestUser() uint {
	var existing db.User
	if err := db.DB.Where("username = ?", "demo").First(&existing).Error; err == nil {
		fmt.Println("用户已存在，跳过创建")
		return existing.ID
	}

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("demo123"), bcrypt.DefaultCost)
	user := db.User{
		Username:    "demo",
		Password:    string(hashedPassword),
		DisplayName: "演示用户",
	}
	if err := db.DB.Create(&user).Error; err != nil {
		log.Fatal("创建用户失败:", err)
	}

	fmt.Println("✅ 测试用户创建完成")
	return user.ID
}

// 创建测试习惯，并通过打卡回放出真实的连胜数据
func createTestHabits(userID uint) {
	var count int64
	db.DB.Model(&db.Habit{}).Where("user_id = ?", userID).Count(&count)
	if count > 0 {
		fmt.Println("习惯已存在，跳过创建")
		return
	}

	svc := service.NewHabitService(db.DB)

	seeds := []struct {
		input service.HabitInput
		// 需要打卡的天数偏移（0 表示今天），按时间正序
		completedOffsets []int
	}{
		{
			input: service.HabitInput{
				Title:             "晨跑",
				Description:       "每天 5 公里",
				Category:          "health",
				TimeOfDay:         "morning",
				CurrentDifficulty: 4,
			},
			completedOffsets: []int{4, 3, 2, 1, 0},
		},
		{
			input: service.HabitInput{
				Title:             "冥想",
				Description:       "晚间 10 分钟",
				Category:          "mind",
				TimeOfDay:         "evening",
				CurrentDifficulty: 2,
			},
			// 中间隔一天，演示宽限日恢复
			completedOffsets: []int{3, 1, 0},
		},
		{
			input: service.HabitInput{
				Title:             "阅读",
				Description:       "每周三章",
				Category:          "growth",
				Frequency:         "weekly",
				CurrentDifficulty: 3,
			},
			completedOffsets: []int{6},
		},
	}

	for _, seed := range seeds {
		habit, err := svc.Create(userID, seed.input)
		if err != nil {
			log.Fatal("创建习惯失败:", err)
		}

		// 按时间正序回放打卡，让连胜按真实路径演化
		for _, offset := range seed.completedOffsets {
			when := time.Now().AddDate(0, 0, -offset)
			if _, err := svc.LogCompletion(userID, habit.ID, service.CompletionInput{
				CompletedAt: &when,
			}); err != nil {
				log.Fatal("打卡失败:", err)
			}
		}
	}

	fmt.Println("✅ 测试习惯与打卡记录创建完成")
}
