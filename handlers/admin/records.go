package admin

import (
	"kandibot/database"
	"kandibot/models"

	"github.com/gofiber/fiber/v2"
)

// GetRecords returns user records with pagination
func GetRecords(c *fiber.Ctx) error {
	db := database.GetDB()

	// Get pagination parameters
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	search := c.Query("search", "")

	offset := (page - 1) * limit

	var records []models.UserRecord
	var total int64

	query := db.Model(&models.UserRecord{})

	// Apply search filter if provided
	if search != "" {
		query = query.Where("user_id LIKE ?", "%"+search+"%")
	}

	// Get total count
	query.Count(&total)

	// Get paginated records
	if err := query.Preload("Unlocks").Offset(offset).Limit(limit).Order("points DESC").Find(&records).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to fetch records",
		})
	}

	return c.JSON(fiber.Map{
		"records": records,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// GetRecord returns a single record by platform user id, with its
// purchase history
func GetRecord(c *fiber.Ctx) error {
	db := database.GetDB()
	userID := c.Params("id")

	var record models.UserRecord
	if err := db.Preload("Unlocks").Where("user_id = ?", userID).First(&record).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Record not found",
		})
	}

	var purchases []models.Purchase
	db.Where("user_id = ?", userID).Order("created_at DESC").Find(&purchases)

	return c.JSON(fiber.Map{
		"record":    record,
		"purchases": purchases,
	})
}

// GetStats returns aggregate progression statistics
func GetStats(c *fiber.Ctx) error {
	db := database.GetDB()

	var totalRecords, totalUnlocks, totalPurchases int64
	db.Model(&models.UserRecord{}).Count(&totalRecords)
	db.Model(&models.Unlock{}).Count(&totalUnlocks)
	db.Model(&models.Purchase{}).Count(&totalPurchases)

	var totalPoints int64
	db.Model(&models.UserRecord{}).Select("COALESCE(SUM(points), 0)").Scan(&totalPoints)

	return c.JSON(fiber.Map{
		"total_records":   totalRecords,
		"total_unlocks":   totalUnlocks,
		"total_purchases": totalPurchases,
		"total_points":    totalPoints,
	})
}
