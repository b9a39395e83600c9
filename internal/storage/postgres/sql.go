package postgres

const reviewColumns = `id, tenant_id, app_id, user_id, score, comment,
       created_at, is_moderated, moderation_status, moderator_id, moderation_note`

const insertReviewSQL = `
INSERT INTO reviews (tenant_id, app_id, user_id, score, comment)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + reviewColumns

// scopeWhere is shared by the page and the aggregate so both describe the same set.
// $1 tenant_id, $2 app_id, $3 moderated-only flag.
const scopeWhere = `
WHERE tenant_id = $1
  AND app_id = $2
  AND ($3::boolean = false OR is_moderated = true)`

const listReviewsSQL = `
SELECT ` + reviewColumns + `
FROM reviews` + scopeWhere + `
ORDER BY created_at DESC, id DESC
LIMIT $4 OFFSET $5`

const reviewStatsSQL = `
SELECT COUNT(*), COALESCE(AVG(score::float8), 0.0)
FROM reviews` + scopeWhere

// Last writer wins: there is no version column to compare against.
const moderateReviewSQL = `
UPDATE reviews
SET is_moderated      = true,
    moderation_status = $1,
    moderator_id      = $2,
    moderation_note   = $3
WHERE id = $4 AND tenant_id = $5
RETURNING ` + reviewColumns
