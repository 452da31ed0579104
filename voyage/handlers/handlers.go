// Package handlers wires the game engines to the HTTP surface. Every
// route resolves the acting player first; accounts are created lazily
// on first contact.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/voyagelabs/voyage-server/voyage/database/models"
	"github.com/voyagelabs/voyage-server/voyage/database/repositories"
	"github.com/voyagelabs/voyage-server/voyage/engine"
	"github.com/voyagelabs/voyage-server/voyage/engine/dungeon"
	"github.com/voyagelabs/voyage-server/voyage/engine/market"
	"github.com/voyagelabs/voyage-server/voyage/engine/mint"
	"github.com/voyagelabs/voyage-server/voyage/engine/npc"
	"github.com/voyagelabs/voyage-server/voyage/engine/season"
	"github.com/voyagelabs/voyage-server/voyage/engine/travel"
	"github.com/voyagelabs/voyage-server/voyage/gameconfig"
	"github.com/voyagelabs/voyage-server/voyage/search"
)

type Server struct {
	Players repositories.PlayerRepository
	Configs repositories.ConfigRepository
	Cfg     *gameconfig.Resolver

	Market  *market.Engine
	Travel  *travel.Engine
	Dungeon *dungeon.Engine
	Season  *season.Engine
	Mint    *mint.Engine
	NPC     *npc.Engine
	Search  *search.Service
}

// Register mounts every route under /api/v1.
func (s *Server) Register(app *fiber.App) {
	v1 := app.Group("/api/v1")

	v1.Post("/player/status", s.PlayerStatus())

	v1.Get("/market", s.GetMarket())
	v1.Post("/market/buy", s.MarketBuy())
	v1.Post("/market/sell", s.MarketSell())

	v1.Post("/travel/sail", s.TravelSail())
	v1.Post("/travel/claim", s.TravelClaim())

	v1.Post("/map/move", s.MapMove())
	v1.Post("/map/beacon", s.MapBeacon())
	v1.Post("/ship/upgrade", s.ShipUpgrade())

	v1.Post("/dungeon/enter", s.DungeonEnter())
	v1.Post("/dungeon/action", s.DungeonAction())

	v1.Post("/season/contribute", s.SeasonContribute())
	v1.Get("/season/leaderboard", s.SeasonLeaderboard())
	v1.Get("/lore", s.Lore())

	v1.Post("/mint/eligibility", s.MintEligibility())
	v1.Post("/mint/build", s.MintBuild())
	v1.Post("/mint/confirm", s.MintConfirm())

	v1.Post("/npc/chat", s.NPCChat())
	v1.Get("/search", s.SearchCatalog())

	v1.Post("/admin/config", s.AdminSetConfig())
}

// resolvePlayer loads the acting player, creating the account with
// configured starting state on first contact.
func (s *Server) resolvePlayer(ctx context.Context, playerID string) (*models.Player, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return nil, engine.Validation("player_id required")
	}

	player, err := s.Players.GetByPlayerID(ctx, playerID)
	if err == nil {
		return player, nil
	}
	if !errors.Is(err, repositories.ErrPlayerNotFound) {
		return nil, fmt.Errorf("failed to load player: %w", err)
	}

	player = &models.Player{
		PlayerID:      playerID,
		Money:         s.Cfg.Int64(ctx, "player.start_money", 1000, 0, 100_000_000),
		CurrentPort:   s.Cfg.Int64(ctx, "player.start_port", 1, 1, 1_000_000),
		ShipLevel:     1,
		CargoCapacity: int(s.Cfg.Int64(ctx, "player.start_cargo", 50, 1, 100000)),
	}
	if err := s.Players.Create(ctx, player); err != nil {
		// A concurrent first request may have won the insert.
		if existing, gerr := s.Players.GetByPlayerID(ctx, playerID); gerr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return player, nil
}

type playerRequest struct {
	PlayerID string `json:"player_id"`
}

func (s *Server) PlayerStatus() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req playerRequest
		if err := c.BodyParser(&req); err != nil {
			return sendError(c, fiber.StatusBadRequest, "VALIDATION", "invalid request body")
		}
		player, err := s.resolvePlayer(c.Context(), req.PlayerID)
		if err != nil {
			return sendDomainError(c, err)
		}
		return sendSuccess(c, fiber.Map{
			"player_id":      player.PlayerID,
			"money":          player.Money,
			"current_port":   player.CurrentPort,
			"ship_level":     player.ShipLevel,
			"cargo_capacity": player.CargoCapacity,
			"position":       fiber.Map{"q": player.HexQ, "r": player.HexR},
		})
	}
}

func (s *Server) GetMarket() fiber.Handler {
	return func(c *fiber.Ctx) error {
		player, err := s.resolvePlayer(c.Context(), c.Query("player_id"))
		if err != nil {
			return sendDomainError(c, err)
		}
		view, err := s.Market.GetMarket(c.Context(), player)
		if err != nil {
			return sendDomainError(c, err)
		}
		return sendSuccess(c, view)
	}
}

type tradeRequest struct {
	PlayerID string `json:"player_id"`
	GoodID   int64  `json:"good_id"`
	Quantity int    `json:"quantity"`
}

func (s *Server) MarketBuy() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req tradeRequest
		if err := c.BodyParser(&req); err != nil {
			return sendError(c, fiber.StatusBadRequest, "VALIDATION", "invalid request body")
		}
		player, err := s.resolvePlayer(c.Context(), req.PlayerID)
		if err != nil {
			return sendDomainError(c, err)
		}
		result, err := s.Market.Buy(c.Context(), player, req.GoodID, req.Quantity)
		if err != nil {
			return sendDomainError(c, err)
		}
		return sendSuccess(c, result)
	}
}

func (s *Server) MarketSell() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req tradeRequest
		if err := c.BodyParser(&req); err != nil {
			return sendError(c, fiber.StatusBadRequest, "VALIDATION", "invalid request body")
		}
		player, err := s.resolvePlayer(c.Context(), req.PlayerID)
		if err != nil {
			return sendDomainError(c, err)
		}
		result, err := s.Market.Sell(c.Context(), player, req.GoodID, req.Quantity)
		if err != nil {
			return sendDomainError(c, err)
		}
		return sendSuccess(c, result)
	}
}

func (s *Server) TravelSail() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			PlayerID string `json:"player_id"`
			ToPort   int64  `json:"to_port"`
		}
		if err := c.BodyParser(&req); err != nil {
			return sendError(c, fiber.StatusBadRequest, "VALIDATION", "invalid request body")
		}
		player, err := s.resolvePlayer(c.Context(), req.PlayerID)
		if err != nil {
			return sendDomainError(c, err)
		}
		view, err := s.Travel.Sail(c.Context(), player, req.ToPort)
		if err != nil {
			return sendDomainError(c, err)
		}
		return sendSuccess(c, view)
	}
}

func (s *Server) TravelClaim() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req playerRequest
		if err := c.BodyParser(&req); err != nil {
			return sendError(c, fiber.StatusBadRequest, "VALIDATION", "invalid request body")
		}
		player, err := s.resolvePlayer(c.Context(), req.PlayerID)
		if err != nil {
			return sendDomainError(c, err)
		}
		result, err := s.Travel.Claim(c.Context(), player)
		if err != nil {
			return sendDomainError(c, err)
		}
		return sendSuccess(c, result)
	}
}

func (s *Server) MapMove() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			PlayerID string `json:"player_id"`
			Q        int    `json:"q"`
			R        int    `json:"r"`
		}
		if err := c.BodyParser(&req); err != nil {
			return sendError(c, fiber.StatusBadRequest, "VALIDATION", "invalid request body")
		}
		player, err := s.resolvePlayer(c.Context(), req.PlayerID)
		if err != nil {
			return sendDomainError(c, err)
		}
		view, err := s.Travel.Move(c.Context(), player, req.Q, req.R)
		if err != nil {
			return sendDomainError(c, err)
		}
		return sendSuccess(c, view)
	}
}

func (s *Server) MapBeacon() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			PlayerID string `json:"player_id"`
			Q        int    `json:"q"`
			R        int    `json:"r"`
			Text     string `json:"text"`
		}
		if err := c.BodyParser(&req); err != nil {
			return sendError(c, fiber.StatusBadRequest, "VALIDATION", "invalid request body")
		}
		player, err := s.resolvePlayer(c.Context(), req.PlayerID)
		if err != nil {
			return sendDomainError(c, err)
		}
		result, err := s.Travel.PlaceBeacon(c.Context(), player, req.Q, req.R, req.Text)
		if err != nil {
			return sendDomainError(c, err)
		}
		return sendSuccess(c, result)
	}
}

func (s *Server) ShipUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req playerRequest
		if err := c.BodyParser(&req); err != nil {
			return sendError(c, fiber.StatusBadRequest, "VALIDATION", "invalid request body")
		}
		player, err := s.resolvePlayer(c.Context(), req.PlayerID)
		if err != nil {
			return sendDomainError(c, err)
		}
		result, err := s.Travel.UpgradeShip(c.Context(), player)
		if err != nil {
			return sendDomainError(c, err)
		}
		return sendSuccess(c, result)
	}
}

func (s *Server) DungeonEnter() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			PlayerID  string `json:"player_id"`
			DungeonID int64  `json:"dungeon_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return sendError(c, fiber.StatusBadRequest, "VALIDATION", "invalid request body")
		}
		player, err := s.resolvePlayer(c.Context(), req.PlayerID)
		if err != nil {
			return sendDomainError(c, err)
		}
		view, err := s.Dungeon.Enter(c.Context(), player, req.DungeonID)
		if err != nil {
			return sendDomainError(c, err)
		}
		return sendSuccess(c, view)
	}
}

func (s *Server) DungeonAction() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			PlayerID string `json:"player_id"`
			Action   string `json:"action"`
		}
		if err := c.BodyParser(&req); err != nil {
			return sendError(c, fiber.StatusBadRequest, "VALIDATION", "invalid request body")
		}
		player, err := s.resolvePlayer(c.Context(), req.PlayerID)
		if err != nil {
			return sendDomainError(c, err)
		}
		view, err := s.Dungeon.Action(c.Context(), player, req.Action)
		if err != nil {
			return sendDomainError(c, err)
		}
		return sendSuccess(c, view)
	}
}

func (s *Server) SeasonContribute() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			PlayerID string `json:"player_id"`
			Amount   int    `json:"amount"`
		}
		if err := c.BodyParser(&req); err != nil {
			return sendError(c, fiber.StatusBadRequest, "VALIDATION", "invalid request body")
		}
		player, err := s.resolvePlayer(c.Context(), req.PlayerID)
		if err != nil {
			return sendDomainError(c, err)
		}
		view, err := s.Season.Contribute(c.Context(), player, req.Amount)
		if err != nil {
			return sendDomainError(c, err)
		}
		return sendSuccess(c, view)
	}
}

func (s *Server) SeasonLeaderboard() fiber.Handler {
	return func(c *fiber.Ctx) error {
		view, err := s.Season.Leaderboard(c.Context(), c.QueryInt("limit", 10))
		if err != nil {
			return sendDomainError(c, err)
		}
		return sendSuccess(c, view)
	}
}

func (s *Server) Lore() fiber.Handler {
	return func(c *fiber.Ctx) error {
		player, err := s.resolvePlayer(c.Context(), c.Query("player_id"))
		if err != nil {
			return sendDomainError(c, err)
		}
		views, err := s.Season.LoreCollection(c.Context(), player)
		if err != nil {
			return sendDomainError(c, err)
		}
		return sendSuccess(c, views)
	}
}

type walletRequest struct {
	Wallet string `json:"wallet"`
}

func (s *Server) MintEligibility() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req walletRequest
		if err := c.BodyParser(&req); err != nil {
			return sendError(c, fiber.StatusBadRequest, "VALIDATION", "invalid request body")
		}
		view, err := s.Mint.Eligibility(c.Context(), req.Wallet)
		if err != nil {
			return sendDomainError(c, err)
		}
		return sendSuccess(c, view)
	}
}

func (s *Server) MintBuild() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req walletRequest
		if err := c.BodyParser(&req); err != nil {
			return sendError(c, fiber.StatusBadRequest, "VALIDATION", "invalid request body")
		}
		view, err := s.Mint.BuildTx(c.Context(), req.Wallet, c.IP())
		if err != nil {
			return sendDomainError(c, err)
		}
		return sendSuccess(c, view)
	}
}

func (s *Server) MintConfirm() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Wallet    string `json:"wallet"`
			Signature string `json:"signature"`
			Asset     string `json:"asset"`
		}
		if err := c.BodyParser(&req); err != nil {
			return sendError(c, fiber.StatusBadRequest, "VALIDATION", "invalid request body")
		}
		view, err := s.Mint.Confirm(c.Context(), req.Wallet, c.IP(), req.Signature, req.Asset)
		if err != nil {
			return sendDomainError(c, err)
		}
		return sendSuccess(c, view)
	}
}

func (s *Server) NPCChat() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			PlayerID string `json:"player_id"`
			NPCID    string `json:"npc_id"`
			Message  string `json:"message"`
		}
		if err := c.BodyParser(&req); err != nil {
			return sendError(c, fiber.StatusBadRequest, "VALIDATION", "invalid request body")
		}
		player, err := s.resolvePlayer(c.Context(), req.PlayerID)
		if err != nil {
			return sendDomainError(c, err)
		}
		view, err := s.NPC.Interact(c.Context(), player, req.NPCID, req.Message)
		if err != nil {
			return sendDomainError(c, err)
		}
		return sendSuccess(c, view)
	}
}

func (s *Server) SearchCatalog() fiber.Handler {
	return func(c *fiber.Ctx) error {
		matches, err := s.Search.Query(c.Context(), c.Query("q"), c.QueryInt("limit", 10))
		if err != nil {
			return sendDomainError(c, err)
		}
		return sendSuccess(c, matches)
	}
}

// AdminSetConfig upserts a tuning key and drops it from the resolver
// cache so the next read sees the new value instead of waiting out the
// TTL.
func (s *Server) AdminSetConfig() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		}
		if err := c.BodyParser(&req); err != nil {
			return sendError(c, fiber.StatusBadRequest, "VALIDATION", "invalid request body")
		}
		req.Key = strings.TrimSpace(req.Key)
		if req.Key == "" {
			return sendError(c, fiber.StatusBadRequest, "VALIDATION", "key required")
		}
		if err := s.Configs.Set(c.Context(), req.Key, req.Value); err != nil {
			return sendDomainError(c, fmt.Errorf("failed to store config: %w", err))
		}
		s.Cfg.Invalidate(req.Key)
		return sendSuccess(c, fiber.Map{"key": req.Key, "value": req.Value})
	}
}
