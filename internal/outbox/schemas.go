package outbox

const sessionRecordedSchema = `{
  "type": "object",
  "title": "SessionRecorded",
  "properties": {
    "session_id": {"type": "string"},
    "user_id": {"type": "string"},
    "total_calories": {"type": "number"},
    "duration_min": {"type": "integer"},
    "recorded_at": {"type": "string", "format": "date-time"}
  },
  "required": ["session_id", "user_id", "total_calories", "duration_min", "recorded_at"],
  "additionalProperties": false
}`

const challengeCompletedSchema = `{
  "type": "object",
  "title": "ChallengeCompleted",
  "properties": {
    "challenge_id": {"type": "string"},
    "user_id": {"type": "string"},
    "reward_points": {"type": "integer"},
    "completed_at": {"type": "string", "format": "date-time"}
  },
  "required": ["challenge_id", "user_id", "reward_points", "completed_at"],
  "additionalProperties": false
}`

const badgeAwardedSchema = `{
  "type": "object",
  "title": "BadgeAwarded",
  "properties": {
    "badge_id": {"type": "string"},
    "user_id": {"type": "string"},
    "points": {"type": "integer"},
    "awarded_at": {"type": "string", "format": "date-time"}
  },
  "required": ["badge_id", "user_id", "points", "awarded_at"],
  "additionalProperties": false
}`
